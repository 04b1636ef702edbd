package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"match-engine/internal/config"
	"match-engine/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the match-engine tables if they do not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		defer logger.Sync()

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

		if err := db.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema ready")
		return nil
	},
}
