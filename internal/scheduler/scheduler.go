// Package scheduler wires up the cron jobs that periodically trigger a crawl
// run and the daily expiry sweep.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpireSpec runs the expiry sweep once a day, shortly after midnight.
const ExpireSpec = "@daily"

// Job is one scheduled unit of work. Errors are logged, never fatal.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron and manages the crawl loop.
type Scheduler struct {
	cron   *cron.Cron
	crawl  Job
	expire Job
	spec   string // cron spec, e.g. "@every 24h"
	logger *zap.Logger
}

// New creates a Scheduler that crawls every intervalHours hours. expire may be
// nil when there is no store to sweep.
func New(crawl, expire Job, intervalHours int, logger *zap.Logger) *Scheduler {
	logger = logger.With(zap.String("component", "scheduler"))
	return &Scheduler{
		// SkipIfStillRunning: a slow crawl must not stack up behind itself.
		cron: cron.New(
			cron.WithLogger(cronLogger{logger.Sugar()}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()})),
		),
		crawl:  crawl,
		expire: expire,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
		logger: logger,
	}
}

// Start registers the jobs and starts the scheduler. Also runs one crawl
// immediately so listings are populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx, "crawl", s.crawl) }); err != nil {
		return fmt.Errorf("cron.AddFunc %q: %w", s.spec, err)
	}
	if s.expire != nil {
		if _, err := s.cron.AddFunc(ExpireSpec, func() { s.run(ctx, "expire", s.expire) }); err != nil {
			return fmt.Errorf("cron.AddFunc %q: %w", ExpireSpec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron started", zap.String("spec", s.spec), zap.Int("entries", len(s.cron.Entries())))

	go s.run(ctx, "crawl", s.crawl)
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("cron stop timed out with jobs still running")
	}
	s.logger.Info("cron stopped")
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("job started", zap.String("job", name))
	if err := job(ctx); err != nil {
		s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Info("job complete", zap.String("job", name))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
