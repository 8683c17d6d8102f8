// cmd/main.go is the application entry point.
// Subcommands wire the layers together: serve starts the HTTP server, seed
// loads demo data, report prints a report and stress races registrations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	dbDriver   string
	sqlitePath string
	logLevel   string
	logFormat  string

	rootCmd = &cobra.Command{
		Use:   "campus-events",
		Short: "Campus events ledger: registrations, attendance, feedback and reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (optional, env vars are read either way)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "store driver: postgres or sqlite")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "sqlite database file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(stressCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads config and applies the global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if sqlitePath != "" {
		cfg.Database.SQLitePath = sqlitePath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, cfg.Validate()
}

// openStore connects to the configured store and makes sure its schema
// exists.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("connected to sqlite")
		return repository.NewSQLiteStore(db), nil
	default:
		if err := database.ApplySchema(cfg.DSN()); err != nil {
			return nil, err
		}
		pool, err := database.NewPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to postgres")
		return repository.NewPostgresStore(pool), nil
	}
}
