package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/model"
)

var errNotInternship = errors.New("posting was not accepted by the internship rule")

// Store is the persistence the crawler needs: an idempotent company upsert
// and an insert-if-absent keyed by (company, title).
type Store interface {
	UpsertCompany(ctx context.Context, c model.CompanyTarget) (string, error)
	InsertJobIfAbsent(ctx context.Context, j model.PersistedJob) (bool, error)
}

// Persister decides insert vs. skip for accepted postings and keeps the
// run's added/skipped counters.
type Persister struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewPersister constructs a Persister.
func NewPersister(store Store, logger *zap.Logger) *Persister {
	return &Persister{
		store:  store,
		now:    time.Now,
		logger: logger.With(zap.String("component", "persister")),
	}
}

// ResolveCompany returns the storage id of c, creating the company if absent.
func (p *Persister) ResolveCompany(ctx context.Context, c model.CompanyTarget) (string, error) {
	id, err := p.store.UpsertCompany(ctx, c)
	if err != nil {
		return "", fmt.Errorf("resolve company: %w", err)
	}
	return id, nil
}

// Persist inserts posting unless (companyID, title) already exists.
// Duplicates increment stats.JobsSkipped. Storage errors also count as a skip
// and are returned so the caller can record them; they are never fatal.
func (p *Persister) Persist(ctx context.Context, companyID string, posting model.ClassifiedPosting, stats *model.RunStatistics) error {
	if !posting.IsInternship {
		return errNotInternship
	}

	job := model.NewPersistedJob(companyID, posting, p.now().UTC())
	inserted, err := p.store.InsertJobIfAbsent(ctx, job)
	if err != nil {
		stats.JobsSkipped++
		p.logger.Warn("insert failed, skipping posting", zap.String("title", posting.Title), zap.Error(err))
		return err
	}

	if !inserted {
		stats.JobsSkipped++
		p.logger.Debug("duplicate posting", zap.String("title", posting.Title))
		return nil
	}

	stats.JobsAdded++
	p.logger.Info("internship added", zap.String("title", posting.Title), zap.String("url", posting.URL))
	return nil
}
