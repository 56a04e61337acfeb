package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/internship-crawler/internal/model"
	"jobmate/internship-crawler/internal/store"
)

func TestMemory_UpsertCompanyIsIdempotentUnderConcurrency(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.UpsertCompany(ctx, model.CompanyTarget{Name: "Acme"})
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, m.Companies())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestMemory_InsertJobIfAbsent(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	now := time.Now()

	job := model.PersistedJob{CompanyID: "c1", Title: "Data Intern", Status: model.StatusActive, ExpiresAt: now.Add(time.Hour)}
	inserted, err := m.InsertJobIfAbsent(ctx, job)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = m.InsertJobIfAbsent(ctx, job)
	require.NoError(t, err)
	assert.False(t, inserted)

	other := job
	other.CompanyID = "c2"
	inserted, err = m.InsertJobIfAbsent(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted, "same title at a different company is a new job")

	assert.Len(t, m.Jobs(), 2)
}

func TestMemory_ExpireJobs(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	now := time.Now()

	_, _ = m.InsertJobIfAbsent(ctx, model.PersistedJob{CompanyID: "c", Title: "Old Intern", Status: model.StatusActive, ExpiresAt: now.Add(-time.Minute)})
	_, _ = m.InsertJobIfAbsent(ctx, model.PersistedJob{CompanyID: "c", Title: "New Intern", Status: model.StatusActive, ExpiresAt: now.Add(time.Hour)})

	n, err := m.ExpireJobs(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	jobs := m.Jobs()
	assert.Equal(t, model.StatusExpired, jobs[0].Status)
	assert.Equal(t, model.StatusActive, jobs[1].Status)
}
