// Package config loads and validates environment variables at startup.
// Fail-fast: any malformed value is returned as an error and the process exits.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingCronSecret  = errors.New("CRON_SECRET is required")
)

// Company directory sources.
const (
	SourceFile = "file"
	SourceDB   = "db"
)

// Config holds all runtime configuration for the crawler.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string // optional; enables the run lock and run-log publishing
	CronSecret  string

	CompaniesFile string
	CompanySource string // "file" or "db"
	RulesFile     string // optional; replaces the built-in selector rules

	ScrapeIntervalHours int
	FetchTimeout        time.Duration
	SettleDelay         time.Duration
	PolitenessDelay     time.Duration
	FetchRetries        int
	Concurrency         int
	RespectRobots       bool
	UserAgent           string
	ChromePath          string
	Headless            bool
	TestModeLimit       int

	LogLevel       string
	LogDevelopment bool
}

// Load reads .env (if present) and the environment and returns a validated
// Config. DATABASE_URL and CRON_SECRET are checked by the commands that need
// them (see RequireDatabase, RequireCronSecret).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:          getenv("CRAWLER_PORT", "8083"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		CronSecret:    os.Getenv("CRON_SECRET"),
		CompaniesFile: getenv("COMPANIES_FILE", "companies.yaml"),
		CompanySource: getenv("COMPANY_SOURCE", SourceFile),
		RulesFile:     os.Getenv("RULES_FILE"),
		UserAgent:     os.Getenv("USER_AGENT"),
		ChromePath:    os.Getenv("CHROME_PATH"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
	}

	if cfg.CompanySource != SourceFile && cfg.CompanySource != SourceDB {
		return nil, fmt.Errorf("COMPANY_SOURCE must be %q or %q, got %q", SourceFile, SourceDB, cfg.CompanySource)
	}

	var err error
	if cfg.ScrapeIntervalHours, err = positiveInt("SCRAPE_INTERVAL_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = positiveInt("CONCURRENCY", 1); err != nil {
		return nil, err
	}
	if cfg.TestModeLimit, err = positiveInt("TEST_MODE_LIMIT", 3); err != nil {
		return nil, err
	}
	if cfg.FetchRetries, err = nonNegativeInt("FETCH_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = duration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", cfg.FetchTimeout)
	}
	if cfg.SettleDelay, err = duration("SETTLE_DELAY", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.PolitenessDelay, err = duration("POLITENESS_DELAY", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = boolean("RESPECT_ROBOTS", true); err != nil {
		return nil, err
	}
	if cfg.Headless, err = boolean("HEADLESS", true); err != nil {
		return nil, err
	}
	if cfg.LogDevelopment, err = boolean("LOG_DEVELOPMENT", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireDatabase fails when no DATABASE_URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// RequireCronSecret fails when the trigger endpoint would be unauthenticated.
func (c *Config) RequireCronSecret() error {
	if c.CronSecret == "" {
		return ErrMissingCronSecret
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}

func nonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, s)
	}
	return v, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration like 3s, got %q", key, s)
	}
	return v, nil
}

func boolean(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, s)
	}
	return v, nil
}
