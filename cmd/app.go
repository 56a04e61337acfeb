package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/config"
	"jobmate/internship-crawler/internal/db"
	"jobmate/internship-crawler/internal/metrics"
	"jobmate/internship-crawler/internal/model"
	"jobmate/internship-crawler/internal/runlog"
	"jobmate/internship-crawler/internal/scraper"
	"jobmate/internship-crawler/internal/store"
)

const (
	// runLockTTL bounds how long a crashed run can block the next one.
	runLockTTL = 6 * time.Hour

	retryInitialDelay = 2 * time.Second
)

// jobStore is what a run writes to: Postgres normally, memory on --dry-run.
type jobStore interface {
	scraper.Store
	scraper.RunLog
}

// app is the wired crawler for one process.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	pool   *pgxpool.Pool // nil on a dry run reading companies from file
	rdb    *redis.Client // nil without REDIS_URL or on a dry run
	pg     *store.Postgres
	memory *store.Memory // set on a dry run

	fetchers     scraper.Fetchers
	orchestrator *scraper.Orchestrator
	history      *runlog.Redis
	metrics      *metrics.Metrics
}

// newApp connects to the configured backends and builds the pipeline. On a
// dry run nothing is written: jobs and the run record go to memory.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, dryRun bool) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var js jobStore
	if dryRun {
		a.memory = store.NewMemory()
		js = a.memory
	}

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	if !dryRun || cfg.CompanySource == config.SourceDB {
		if err := cfg.RequireDatabase(); err != nil {
			return a, err
		}
		logger.Info("connecting to PostgreSQL")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, int32(cfg.Concurrency)+4)
		if err != nil {
			return a, fmt.Errorf("postgres: %w", err)
		}
		a.pool = pool
		a.pg = store.NewPostgres(pool)
		if !dryRun {
			js = a.pg
		}
	}

	deps := scraper.Deps{
		Persister: scraper.NewPersister(js, logger),
		RunLogs:   []scraper.RunLog{js},
		Observer:  a.metrics,
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	if !dryRun && cfg.RedisURL != "" {
		logger.Info("connecting to Redis")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return a, fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
		a.history = runlog.NewRedis(rdb, logger)
		deps.RunLogs = append(deps.RunLogs, a.history)
		deps.Locker = runlog.NewLock(rdb, runLockTTL)
	} else {
		deps.Locker = &runlog.LocalLock{}
	}

	// ── Extraction rules ─────────────────────────────────────────────────────
	rules := scraper.DefaultRules()
	if cfg.RulesFile != "" {
		if rules, err = scraper.LoadRules(cfg.RulesFile); err != nil {
			return a, err
		}
	}
	deps.Extractor = scraper.NewExtractor(rules, logger)

	// ── Fetchers ─────────────────────────────────────────────────────────────
	opts := scraper.FetchOptions{
		UserAgent:   cfg.UserAgent,
		Timeout:     cfg.FetchTimeout,
		SettleDelay: cfg.SettleDelay,
		Headless:    cfg.Headless,
		ChromePath:  cfg.ChromePath,
	}
	a.fetchers = scraper.Fetchers{
		model.RenderBrowser: scraper.WithRetry(scraper.NewBrowserFetcher(opts, logger), cfg.FetchRetries, retryInitialDelay, logger),
		model.RenderStatic:  scraper.WithRetry(scraper.NewStaticFetcher(opts, logger), cfg.FetchRetries, retryInitialDelay, logger),
	}
	deps.Fetchers = a.fetchers
	if cfg.RespectRobots {
		deps.Robots = scraper.NewRobotsChecker(nil, opts.UserAgent)
	}

	a.orchestrator = scraper.NewOrchestrator(deps, scraper.Options{
		PolitenessDelay: cfg.PolitenessDelay,
		TestModeLimit:   cfg.TestModeLimit,
		Concurrency:     cfg.Concurrency,
	}, logger)
	return a, nil
}

// crawl loads the company directory and runs the orchestrator once.
func (a *app) crawl(ctx context.Context, testMode bool) (model.RunRecord, error) {
	companies, err := a.loadCompanies(ctx)
	if err != nil {
		return model.RunRecord{}, err
	}
	return a.orchestrator.Run(ctx, companies, scraper.RunOptions{TestMode: testMode})
}

// scheduledCrawl is the cron job: a run refused by the lock is not a failure.
func (a *app) scheduledCrawl(ctx context.Context) error {
	_, err := a.crawl(ctx, false)
	if errors.Is(err, runlog.ErrRunInProgress) {
		a.logger.Info("scheduled run skipped, another run holds the lock")
		return nil
	}
	return err
}

// expire marks active listings past their lifetime as expired.
func (a *app) expire(ctx context.Context) error {
	n, err := a.pg.ExpireJobs(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	a.logger.Info("expired listings", zap.Int64("count", n))
	return nil
}

func (a *app) loadCompanies(ctx context.Context) ([]model.CompanyTarget, error) {
	if a.cfg.CompanySource == config.SourceDB {
		return a.pg.LoadEnabledCompanies(ctx)
	}
	return config.LoadCompanies(a.cfg.CompaniesFile)
}

// Close releases browsers and connections.
func (a *app) Close() {
	if a.fetchers != nil {
		if err := a.fetchers.Close(); err != nil {
			a.logger.Warn("close fetchers", zap.Error(err))
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
