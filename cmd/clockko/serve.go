package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"clockko/focus/internal/config"
	"clockko/focus/internal/handler"
	"clockko/focus/internal/logging"
	"clockko/focus/internal/notify"
	"clockko/focus/internal/repository"
	"clockko/focus/internal/router"
	"clockko/focus/internal/service"
	"clockko/focus/internal/timer"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the timer and its HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.Logging)
	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting ClockKo")

	location, err := cfg.Timer.Location()
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}()
	logger.Info().Str("path", cfg.Storage.DBPath).Msg("Database initialized")

	snapshots, closer, err := openSnapshotStore(cfg.Storage, database)
	if err != nil {
		return fmt.Errorf("failed to initialize snapshot store: %w", err)
	}
	defer closer.Close()
	logger.Info().Str("backend", cfg.Storage.SnapshotBackend).Msg("Snapshot store initialized")

	sessionService := service.NewSessionService(
		repository.NewSessionRepository(database),
		service.SessionServiceOptions{
			StaleAfter: cfg.Timer.StaleSessionAfter,
			Location:   location,
		},
	)

	sink := notify.NewDesktop(notify.Options{
		Sound:  cfg.Notifications.Sound,
		System: cfg.Notifications.System,
	}, logger)
	if err := sink.RequestPermission(); err != nil {
		logger.Info().Err(err).Msg("System notifications disabled")
	}
	defer sink.Wait()

	clock := timer.New(sessionService, snapshots, sink, timer.Config{
		FocusMinutes:       cfg.Timer.FocusMinutes,
		BreakMinutes:       cfg.Timer.BreakMinutes,
		TickInterval:       cfg.Timer.TickInterval,
		ClearStuckSessions: cfg.Timer.ClearStuckSessions,
	}, logger)
	defer clock.Destroy()

	state, apiErr := clock.Initialize(cmd.Context())
	if apiErr != nil {
		logger.Error().Str("code", apiErr.Code).Str("message", apiErr.Message).Msg("Failed to restore timer, starting idle")
	} else {
		logger.Info().
			Str("mode", string(state.Mode)).
			Int("time_left", state.TimeLeftSeconds).
			Bool("running", state.IsRunning).
			Msg("Timer restored")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(
		service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		handler.NewTimerHandler(clock),
		handler.NewSessionHandler(sessionService),
		cfg.Server.CORSOrigins,
		logger,
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("ClockKo stopped")
	return nil
}
