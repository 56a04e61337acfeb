// Package store persists companies, scraped internships and run records.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/internship-crawler/internal/model"
)

// Postgres is the production store backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an already-connected pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// UpsertCompany returns the id of the company with c.Name, creating it if
// needed. The UNIQUE(name) constraint makes concurrent runs safe; an existing
// row keeps its metadata.
func (p *Postgres) UpsertCompany(ctx context.Context, c model.CompanyTarget) (string, error) {
	var id string
	err := p.pool.QueryRow(ctx,
		`INSERT INTO companies (name, website, careers_url, industry, size, location, enabled, render_mode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id::text`,
		c.Name, c.Website, c.CareersURL, c.Industry, c.Size, model.DefaultLocation, c.Enabled, string(c.Render),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert company %q: %w", c.Name, err)
	}
	return id, nil
}

// InsertJobIfAbsent inserts j unless a job with the same (company, title)
// exists. inserted is false for duplicates.
func (p *Postgres) InsertJobIfAbsent(ctx context.Context, j model.PersistedJob) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO jobs (company_id, title, url, location, description, job_type, source, status, created_at, expires_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (company_id, title) DO NOTHING`,
		j.CompanyID, j.Title, j.URL, j.Location, j.Description,
		j.JobType, j.Source, j.Status, j.CreatedAt, j.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert job %q: %w", j.Title, err)
	}
	return tag.RowsAffected() > 0, nil
}

// LoadEnabledCompanies fetches all enabled companies, oldest first.
func (p *Postgres) LoadEnabledCompanies(ctx context.Context) ([]model.CompanyTarget, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT name, website, careers_url, industry, size, render_mode
		 FROM companies
		 WHERE enabled = true AND careers_url <> ''
		 ORDER BY created_at, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []model.CompanyTarget
	for rows.Next() {
		var (
			c      model.CompanyTarget
			render string
		)
		if err := rows.Scan(&c.Name, &c.Website, &c.CareersURL, &c.Industry, &c.Size, &render); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		mode, err := model.ParseRenderMode(render)
		if err != nil {
			return nil, fmt.Errorf("company %q: %w", c.Name, err)
		}
		c.Render = mode
		c.Enabled = true
		companies = append(companies, c)
	}

	return companies, rows.Err()
}

// ExpireJobs marks active jobs whose expiry has passed as expired.
func (p *Postgres) ExpireJobs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status = $1 WHERE status = $2 AND expires_at <= $3`,
		model.StatusExpired, model.StatusActive, now,
	)
	if err != nil {
		return 0, fmt.Errorf("expire jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// AppendRun stores a finished run's summary in scrape_runs.
func (p *Postgres) AppendRun(ctx context.Context, r model.RunRecord) error {
	errs, err := json.Marshal(r.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO scrape_runs (run_id, status, test_mode, companies_processed, jobs_found,
		                          jobs_added, jobs_skipped, jobs_rejected, errors, started_at, finished_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11)`,
		r.RunID, r.Status, r.TestMode, r.CompaniesProcessed, r.JobsFound,
		r.JobsAdded, r.JobsSkipped, r.JobsRejected, string(errs), r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scrape run: %w", err)
	}
	return nil
}
