package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"jobmate/internship-crawler/internal/model"
)

// Memory is an in-process store for dry runs and tests. It enforces the same
// uniqueness rules as the Postgres schema.
type Memory struct {
	mu        sync.Mutex
	companies map[string]string // name -> id
	jobs      []model.PersistedJob
	runs      []model.RunRecord
	nextID    int
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{companies: make(map[string]string)}
}

// UpsertCompany returns the existing id for c.Name or allocates a new one.
func (m *Memory) UpsertCompany(_ context.Context, c model.CompanyTarget) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.companies[c.Name]; ok {
		return id, nil
	}
	m.nextID++
	id := "company-" + strconv.Itoa(m.nextID)
	m.companies[c.Name] = id
	return id, nil
}

// InsertJobIfAbsent stores j unless (CompanyID, Title) is already present.
func (m *Memory) InsertJobIfAbsent(_ context.Context, j model.PersistedJob) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.jobs {
		if existing.CompanyID == j.CompanyID && existing.Title == j.Title {
			return false, nil
		}
	}
	m.nextID++
	j.ID = "job-" + strconv.Itoa(m.nextID)
	m.jobs = append(m.jobs, j)
	return true, nil
}

// ExpireJobs marks active jobs past their expiry as expired.
func (m *Memory) ExpireJobs(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.jobs {
		if m.jobs[i].Status == model.StatusActive && !m.jobs[i].ExpiresAt.After(now) {
			m.jobs[i].Status = model.StatusExpired
			n++
		}
	}
	return n, nil
}

// AppendRun records a run summary.
func (m *Memory) AppendRun(_ context.Context, r model.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

// Jobs returns a snapshot of the stored jobs in insertion order.
func (m *Memory) Jobs() []model.PersistedJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PersistedJob(nil), m.jobs...)
}

// Companies returns the number of distinct companies stored.
func (m *Memory) Companies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.companies)
}

// Runs returns a snapshot of appended run records.
func (m *Memory) Runs() []model.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RunRecord(nil), m.runs...)
}
