package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/reviewlens/pkg/models"
)

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, &models.ScrapeJob{JobID: "j1", Status: models.JobPending}))

	job, err := st.Get(ctx, "j1")
	require.NoError(t, err)

	// Mutating the snapshot must not leak into the registry.
	job.Status = models.JobFailed
	again, err := st.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, again.Status)
}

func TestMemoryStore_GetUnknown(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryStore_UpdateMutates(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, &models.ScrapeJob{JobID: "j1", Status: models.JobPending}))

	job, err := st.Update(ctx, "j1", func(j *models.ScrapeJob) {
		j.Status = models.JobRunning
		j.Progress = 40
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobRunning, job.Status)
	assert.Equal(t, 40, job.Progress)
}

func TestMemoryStore_UpdateUnknown(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.Update(context.Background(), "missing", func(*models.ScrapeJob) {})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryStore_TerminalJobAbsorbsMutations(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, &models.ScrapeJob{JobID: "j1", Status: models.JobCancelled}))

	// A driver racing a cancel must see the terminal state, not resurrect
	// the job.
	job, err := st.Update(ctx, "j1", func(j *models.ScrapeJob) {
		j.Status = models.JobRunning
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, job.Status)
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, models.JobPending.Terminal())
	assert.False(t, models.JobRunning.Terminal())
	assert.True(t, models.JobCompleted.Terminal())
	assert.True(t, models.JobFailed.Terminal())
	assert.True(t, models.JobCancelled.Terminal())
}
