package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/scheduler"
	"jobmate/internship-crawler/internal/trigger"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cron schedule and the HTTP trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.RequireCronSecret(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return c.serve(ctx, a)
		},
	}
}

func (c *cli) serve(ctx context.Context, a *app) error {
	logger := c.logger

	// ── HTTP server ──────────────────────────────────────────────────────────
	var history trigger.History
	if a.history != nil {
		history = a.history
	}
	mux := http.NewServeMux()
	trigger.NewHandler(trigger.RunnerFunc(a.crawl), history, c.cfg.CronSecret, version, logger).RegisterRoutes(mux)
	mux.Handle("/metrics", a.metrics.Handler())

	// No WriteTimeout: POST /scrape holds the connection for the whole run.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", c.cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// ── Cron ─────────────────────────────────────────────────────────────────
	sched := scheduler.New(a.scheduledCrawl, a.expire, c.cfg.ScrapeIntervalHours, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	logger.Info("stopped")
	return runErr
}
