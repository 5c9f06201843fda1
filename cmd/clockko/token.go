package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clockko/focus/internal/config"
	"clockko/focus/internal/service"
)

var tokenTTL string

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a bearer token for the control API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is not set; the API accepts unauthenticated requests")
		}

		ttl := cfg.Auth.TokenTTL
		if tokenTTL != "" {
			if ttl, err = time.ParseDuration(tokenTTL); err != nil {
				return fmt.Errorf("invalid --ttl: %w", err)
			}
		}

		token, apiErr := service.NewTokenService(cfg.Auth.JWTSecret, ttl).Issue(args[0])
		if apiErr != nil {
			return apiErr
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenTTL, "ttl", "", "Token lifetime, e.g. 24h; 0 never expires (default auth.token_ttl)")
	rootCmd.AddCommand(tokenCmd)
}
