package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"match-engine/internal/config"
	"match-engine/internal/db"
	"match-engine/internal/repository"
)

var purgeUsageCmd = &cobra.Command{
	Use:   "purge-usage",
	Short: "Delete daily usage rows older than the given day",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

		before, _ := cmd.Flags().GetString("before")
		if before == "" {
			before = timeNow().UTC().AddDate(0, 0, -1).Format("2006-01-02")
		}
		if _, err := time.Parse("2006-01-02", before); err != nil {
			return fmt.Errorf("invalid --before %q: %w", before, err)
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		purged, err := repository.NewPgUsageRepository(pool).PurgeBefore(ctx, before)
		if err != nil {
			return err
		}
		logger.Info("stale usage purged", zap.String("before", before), zap.Int("rows", purged))
		return nil
	},
}

func init() {
	purgeUsageCmd.Flags().String("before", "", "purge rows with day < YYYY-MM-DD (default: yesterday UTC)")
}
