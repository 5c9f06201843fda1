package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clockko/focus/internal/config"
	apperrors "clockko/focus/internal/errors"
	"clockko/focus/internal/model"
	"clockko/focus/internal/report"
	"clockko/focus/internal/repository"
	"clockko/focus/internal/service"
)

var (
	summaryDate    string
	summaryFormat  string
	summaryRebuild bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a day's focus and break totals",
	Example: `  clockko summary
  clockko summary --date 2026-03-02 --format yaml
  clockko summary --rebuild`,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "Day to report as YYYY-MM-DD (default today)")
	summaryCmd.Flags().StringVarP(&summaryFormat, "format", "f", report.FormatText, "Output format: text, yaml or json")
	summaryCmd.Flags().BoolVar(&summaryRebuild, "rebuild", false, "Recompute the stored totals from the day's sessions first")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	location, err := cfg.Timer.Location()
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg.Storage)
	if err != nil {
		return err
	}
	defer database.Close()

	sessionService := service.NewSessionService(
		repository.NewSessionRepository(database),
		service.SessionServiceOptions{Location: location},
	)

	var (
		summary *model.DailyAggregate
		apiErr  *apperrors.APIError
	)
	if summaryRebuild {
		summary, apiErr = sessionService.RebuildDailyAggregate(cmd.Context(), summaryDate)
	} else {
		summary, apiErr = sessionService.DailyAggregate(cmd.Context(), summaryDate)
	}
	if apiErr != nil {
		return apiErr
	}

	return report.Render(cmd.OutOrStdout(), summary, summaryFormat)
}
