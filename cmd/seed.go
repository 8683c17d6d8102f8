package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo college, students, events and logins",
	Long: `Load demo data into an empty store: the "Acharya Institute" college,
students Alice and Bob, two events and the logins admin@demo, alice@demo
and bob@demo. Nothing is written if any college already exists.`,
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

		seeded, err := service.Seed(ctx, store, logger)
		if err != nil {
			return err
		}
		if seeded {
			fmt.Fprintln(cmd.OutOrStdout(), "demo data seeded")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "store already seeded, nothing to do")
		}
		return nil
	},
}
