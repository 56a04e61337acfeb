// Package model defines shared data structures for the internship crawler.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied to every job inserted by the crawler.
const (
	DefaultLocation = "Singapore"
	JobTypeIntern   = "internship"
	SourceScraped   = "scraped"
	StatusActive    = "active"
	StatusExpired   = "expired"
	JobLifetime     = 30 * 24 * time.Hour
)

// RenderMode selects how a company's careers page is fetched.
type RenderMode string

const (
	// RenderBrowser drives a headless browser and waits for dynamic content.
	RenderBrowser RenderMode = "browser"
	// RenderStatic issues a plain HTTP GET; for pages that need no JavaScript.
	RenderStatic RenderMode = "static"
)

// ParseRenderMode converts a raw string to a RenderMode. Empty means browser.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(s) {
	case "", RenderBrowser:
		return RenderBrowser, nil
	case RenderStatic:
		return RenderStatic, nil
	}
	return "", fmt.Errorf("unknown render mode %q", s)
}

// CompanyTarget is one entry of the company directory. Immutable during a run.
type CompanyTarget struct {
	Name       string     `json:"name" yaml:"name"`
	Website    string     `json:"website" yaml:"website"`
	CareersURL string     `json:"careersUrl" yaml:"careers_url"`
	Industry   string     `json:"industry" yaml:"industry"`
	Size       string     `json:"size" yaml:"size"`
	Enabled    bool       `json:"enabled" yaml:"enabled"`
	Render     RenderMode `json:"render" yaml:"render"`
}

// ExtractedPosting is a candidate posting scraped from a single page.
// It is never persisted directly.
type ExtractedPosting struct {
	Title       string
	URL         string
	Location    string
	Description string
	// Confidence of the selector rule that first produced the candidate.
	Confidence float64
	Rule       string
}

// ClassifiedPosting is an ExtractedPosting tagged by the internship rule.
type ClassifiedPosting struct {
	ExtractedPosting
	IsInternship bool
}

// PersistedJob is the durable record keyed by (CompanyID, Title).
type PersistedJob struct {
	ID          string
	CompanyID   string
	Title       string
	URL         string
	Location    string
	Description string
	JobType     string
	Source      string
	Status      string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// NewPersistedJob fills the insertion-time defaults for an accepted posting.
func NewPersistedJob(companyID string, p ClassifiedPosting, now time.Time) PersistedJob {
	location := p.Location
	if location == "" {
		location = DefaultLocation
	}
	return PersistedJob{
		CompanyID:   companyID,
		Title:       p.Title,
		URL:         p.URL,
		Location:    location,
		Description: p.Description,
		JobType:     JobTypeIntern,
		Source:      SourceScraped,
		Status:      StatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(JobLifetime),
	}
}

// Stage names the pipeline step a per-company error came from.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageRobots  Stage = "robots"
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StagePersist Stage = "persist"
)

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// CompanyError is one entry of RunStatistics.Errors.
type CompanyError struct {
	Company string `json:"company"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// RunStatistics accumulates counters for exactly one orchestration run.
type RunStatistics struct {
	CompaniesProcessed int            `json:"companiesProcessed"`
	JobsFound          int            `json:"jobsFound"`
	JobsAdded          int            `json:"jobsAdded"`
	JobsSkipped        int            `json:"jobsSkipped"`
	JobsRejected       int            `json:"jobsRejected"`
	Errors             []CompanyError `json:"errors"`
}

// AddError appends a per-company error in processing order. The stage is
// taken from a wrapped *StageError when there is one.
func (s *RunStatistics) AddError(company string, err error) {
	ce := CompanyError{Company: company, Message: err.Error()}
	var se *StageError
	if errors.As(err, &se) {
		ce.Stage = se.Stage
		ce.Message = se.Err.Error()
	}
	s.Errors = append(s.Errors, ce)
}

// Merge folds the counters of one company's result into s.
func (s *RunStatistics) Merge(o RunStatistics) {
	s.CompaniesProcessed += o.CompaniesProcessed
	s.JobsFound += o.JobsFound
	s.JobsAdded += o.JobsAdded
	s.JobsSkipped += o.JobsSkipped
	s.JobsRejected += o.JobsRejected
	s.Errors = append(s.Errors, o.Errors...)
}

// Run status values stored in the run log.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRecord is the summary appended to the run log when a run finishes.
type RunRecord struct {
	RunID      string    `json:"runId"`
	Status     string    `json:"status"`
	TestMode   bool      `json:"testMode"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	RunStatistics
}
