package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clockko/focus/internal/config"
	"clockko/focus/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger := logging.New(cfg.Logging)

		database, err := openDatabase(cfg.Storage)
		if err != nil {
			return err
		}
		defer database.Close()

		logger.Info().Str("path", cfg.Storage.DBPath).Msg("Migrations applied successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
