package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/punchbridge/internal/db"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Open the database, apply pending migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), opts)
		},
	}
}

func runMigrate(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sqlDB, err := db.Open(ctx, db.Config{Path: opts.cfg.DBPath, Env: opts.cfg.Env})
	if err != nil {
		opts.log.Error("migrate failed", zap.String("path", opts.cfg.DBPath), zap.Error(err))
		return err
	}
	defer sqlDB.Close()

	opts.log.Info("schema up to date", zap.String("path", opts.cfg.DBPath))
	return nil
}
