package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Migration is one idempotent schema step.
type Migration struct {
	Version     int
	Description string
	Up          string
}

// Migrations lists the crawler schema in apply order. Every statement is
// IF NOT EXISTS so Migrate can run on every start.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "create companies table",
		Up: `
			CREATE TABLE IF NOT EXISTS companies (
				id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name         TEXT NOT NULL,
				website      TEXT NOT NULL DEFAULT '',
				careers_url  TEXT NOT NULL DEFAULT '',
				industry     TEXT NOT NULL DEFAULT '',
				size         TEXT NOT NULL DEFAULT '',
				location     TEXT NOT NULL DEFAULT 'Singapore',
				enabled      BOOLEAN NOT NULL DEFAULT true,
				render_mode  TEXT NOT NULL DEFAULT 'browser',
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT companies_name_key UNIQUE (name)
			)`,
	},
	{
		Version:     2,
		Description: "create jobs table",
		Up: `
			CREATE TABLE IF NOT EXISTS jobs (
				id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				company_id   UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
				title        TEXT NOT NULL,
				url          TEXT NOT NULL,
				location     TEXT NOT NULL DEFAULT 'Singapore',
				description  TEXT NOT NULL DEFAULT '',
				job_type     TEXT NOT NULL DEFAULT 'internship',
				source       TEXT NOT NULL DEFAULT 'scraped',
				status       TEXT NOT NULL DEFAULT 'active',
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				expires_at   TIMESTAMPTZ NOT NULL,
				CONSTRAINT jobs_company_title_key UNIQUE (company_id, title)
			)`,
	},
	{
		Version:     3,
		Description: "index active jobs by expiry",
		Up:          `CREATE INDEX IF NOT EXISTS jobs_status_expires_idx ON jobs (status, expires_at)`,
	},
	{
		Version:     4,
		Description: "create scrape_runs table",
		Up: `
			CREATE TABLE IF NOT EXISTS scrape_runs (
				run_id               UUID PRIMARY KEY,
				status               TEXT NOT NULL,
				test_mode            BOOLEAN NOT NULL DEFAULT false,
				companies_processed  INT NOT NULL DEFAULT 0,
				jobs_found           INT NOT NULL DEFAULT 0,
				jobs_added           INT NOT NULL DEFAULT 0,
				jobs_skipped         INT NOT NULL DEFAULT 0,
				jobs_rejected        INT NOT NULL DEFAULT 0,
				errors               JSONB NOT NULL DEFAULT '[]',
				started_at           TIMESTAMPTZ NOT NULL,
				finished_at          TIMESTAMPTZ NOT NULL
			)`,
	},
}

// Migrate applies every migration in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for _, m := range Migrations {
		if _, err := pool.Exec(ctx, m.Up); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		logger.Debug("migration applied", zap.Int("version", m.Version), zap.String("description", m.Description))
	}
	return nil
}
