package main

import (
	"github.com/spf13/cobra"

	"jobmate/internship-crawler/internal/db"
)

func (c *cli) expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Mark active listings past their lifetime as expired",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.expire(ctx)
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the crawler's tables and constraints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.RequireDatabase(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			pool, err := db.NewPostgresPool(ctx, c.cfg.DatabaseURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()
			return db.Migrate(ctx, pool, c.logger)
		},
	}
}
