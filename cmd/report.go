package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/spf13/cobra"
)

var (
	reportCollegeID int64
	reportLimit     int
)

var reportNames = []string{
	"event_popularity",
	"top_active_students",
	"average_feedback",
	"top_events_feedback",
	"inactive_students",
	"dashboard",
}

var reportCmd = &cobra.Command{
	Use:       "report <name>",
	Short:     "Print a report as JSON",
	Long:      "Print one report as JSON. Available reports: " + strings.Join(reportNames, ", ") + ".",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: reportNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger := config.NewLogger(cfg.Logging)

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		store, err := openStore(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer store.Close()

		reports := service.NewReportService(store, logger)
		filter := service.ReportFilter{Limit: reportLimit}
		if reportCollegeID > 0 {
			filter.CollegeID = &reportCollegeID
		}

		var out any
		switch args[0] {
		case "event_popularity":
			out, err = reports.EventPopularity(ctx, filter)
		case "top_active_students":
			out, err = reports.TopActiveStudents(ctx, filter)
		case "average_feedback":
			out, err = reports.AverageFeedback(ctx, filter)
		case "top_events_feedback":
			out, err = reports.TopEventsFeedback(ctx, filter)
		case "inactive_students":
			out, err = reports.InactiveStudents(ctx, filter)
		case "dashboard":
			out, err = reports.Dashboard(ctx, filter.CollegeID)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	reportCmd.Flags().Int64Var(&reportCollegeID, "college-id", 0, "only include this college")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 0, "row limit for ranked reports (default: report specific)")
}
