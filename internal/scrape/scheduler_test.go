package scrape

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/models"
	"github.com/reviewpulse/reviewpulse/internal/queue"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

func newSchedulerFixture(t *testing.T) (*store.Store, *queue.Queue, *Scheduler) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	q, err := queue.New(st.DB)
	require.NoError(t, err)
	s := NewScheduler(st, q, time.Minute, 15*time.Second, 3)
	return st, q, s
}

func addSource(t *testing.T, st *store.Store, freq int, nextRunAt *time.Time, active bool) *models.SourceAccount {
	t.Helper()
	src := &models.SourceAccount{
		ID:                      uuid.New().String(),
		TenantID:                "tenant-1",
		LocationID:              "loc-1",
		Platform:                models.PlatformGoogle,
		AccountURL:              "https://maps.google.com/?place_id=abc",
		PollingFrequencyMinutes: freq,
		IsActive:                active,
		NextRunAt:               nextRunAt,
	}
	require.NoError(t, st.Sources.Create(context.Background(), src))
	return src
}

func TestScheduler_SeedAssignsJitteredMarkers(t *testing.T) {
	st, _, s := newSchedulerFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	unscheduled := addSource(t, st, 60, nil, true)
	future := now.Add(30 * time.Minute)
	scheduled := addSource(t, st, 60, &future, true)
	inactive := addSource(t, st, 60, nil, false)

	require.NoError(t, s.seed(ctx))

	got, err := st.Sources.Get(ctx, unscheduled.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRunAt)
	assert.True(t, !got.NextRunAt.Before(now))
	assert.True(t, got.NextRunAt.Before(now.Add(time.Minute+time.Second)))

	// A future marker survives a restart untouched.
	got, err = st.Sources.Get(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, future, *got.NextRunAt, time.Second)

	got, err = st.Sources.Get(ctx, inactive.ID)
	require.NoError(t, err)
	assert.Nil(t, got.NextRunAt)
}

func TestScheduler_SweepEnqueuesOneJobPerDueSource(t *testing.T) {
	st, q, s := newSchedulerFixture(t)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)

	due := addSource(t, st, 60, &past, true)
	future := time.Now().UTC().Add(time.Hour)
	addSource(t, st, 60, &future, true)

	require.NoError(t, s.Sweep(ctx))

	job, err := q.Claim(ctx, queue.QueueScrape)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 3, job.MaxAttempts)

	var payload queue.ScrapePayload
	require.NoError(t, job.Decode(&payload))
	assert.Equal(t, due.ID, payload.SourceAccountID)

	// Only the due source produced a job.
	next, err := q.Claim(ctx, queue.QueueScrape)
	require.NoError(t, err)
	assert.Nil(t, next)

	// The claimed marker advanced; an immediate re-sweep is a no-op.
	require.NoError(t, s.Sweep(ctx))
	depth, err := q.Depth(ctx, queue.QueueScrape)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}
