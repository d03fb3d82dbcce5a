package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	api "decisionlog-backend/cmd/api"
	engagementdomain "decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/internal/engagement/scheduler"
	"decisionlog-backend/pkg/config"
	"decisionlog-backend/pkg/database"
	"decisionlog-backend/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := logger.Init(logger.Config{Debug: cfg.LogDebug, Dir: cfg.LogDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logger: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		logger.Error("Command execution failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "engine",
		Short:         "Engagement and decision-health batch engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(cfg), newRunCmd(cfg), newHealthCmd(cfg), newMigrateCmd(cfg))
	return root
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP cron triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := api.Migrate(db, false); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler := api.NewHandler(ctx, db, cfg)
			defer handler.Close()

			jobs := scheduler.NewEngagementScheduler(handler.Runner, handler.HealthScorer, cfg.SchedulerInterval, cfg.HealthLookbackDays)
			jobs.Start(ctx)
			defer jobs.Stop()

			logger.Info("Server starting", "port", cfg.Port)
			return handler.Start(ctx, ":"+cfg.Port)
		},
	}
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run <category>",
		Short: "Run one notification category once and print the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := engagementdomain.ParseCategory(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			handler := api.NewHandler(ctx, db, cfg)
			defer handler.Close()

			result, err := handler.Runner.Run(ctx, category)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func newHealthCmd(cfg *config.Config) *cobra.Command {
	var lookbackDays int
	cmd := &cobra.Command{
		Use:   "health [userID]",
		Short: "Recompute today's health snapshot for one user, or for all recently active users",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			handler := api.NewHandler(ctx, db, cfg)
			defer handler.Close()

			if len(args) == 1 {
				snapshot, err := handler.HealthScorer.Snapshot(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, snapshot)
			}

			result, err := handler.HealthScorer.SnapshotActiveUsers(ctx, lookbackDays)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().IntVar(&lookbackDays, "lookback-days", cfg.HealthLookbackDays, "days of activity that make a user eligible for a refresh")
	return cmd
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	var withReadModels bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the health_snapshots and send_logs tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := api.Migrate(db, withReadModels); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("Migration complete", "read_models", withReadModels)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withReadModels, "with-read-models", false, "also create the decision/outcome/check-in/profile tables (development only)")
	return cmd
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
