package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/runlog"
)

func (c *cli) runCmd() *cobra.Command {
	var testMode, dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the crawler once and print the run record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, c.cfg, c.logger, dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.crawl(ctx, testMode)
			if errors.Is(err, runlog.ErrRunInProgress) {
				return err
			}
			if rec.RunID != "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(rec); encErr != nil {
					return encErr
				}
			}
			if dryRun && a.memory != nil {
				for _, j := range a.memory.Jobs() {
					c.logger.Info("would add", zap.String("title", j.Title), zap.String("url", j.URL))
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&testMode, "test", false, "crawl only the first TEST_MODE_LIMIT enabled companies")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep results in memory instead of writing to the database")
	return cmd
}
