package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/habilitation-management/internal/activity"
	activitypg "github.com/frahmantamala/habilitation-management/internal/activity/postgres"
	"github.com/frahmantamala/habilitation-management/pkg/logger"
)

var retentionDays int

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Run the activity log retention sweep",
	Long:  `Delete aged activity log entries. High and critical severity entries are kept regardless of age.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}

		logger.Init(cfg.Server.Environment, cfg.Observability.Logging.Level)
		lg := logger.L()

		sqlDB, gormDB, err := initDB(cfg.Database)
		if err != nil {
			lg.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer sqlDB.Close()

		days := retentionDays
		if days <= 0 {
			days = cfg.Retention.ActivityLogDays
		}

		repo := activitypg.NewActivityRepository(gormDB, sqlDB)
		service := activity.NewService(repo, lg)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		deleted, err := service.Cleanup(ctx, days)
		if err != nil {
			lg.Error("retention sweep failed", "error", err)
			os.Exit(1)
		}

		lg.Info("retention sweep finished", "retention_days", days, "deleted", deleted)
	},
}

func init() {
	retentionCmd.Flags().IntVar(&retentionDays, "days", 0, "Retention window in days (overrides config)")
}
