package service

import (
	"context"
	"testing"
	"time"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerDrainsPendingJobs(t *testing.T) {
	f := newProcessorFixture()
	ctx := context.Background()

	f.store.addChunk("c1", "first", "", 0)
	f.store.addChunk("c2", "second", "", 1)

	lowJob := f.createJob(t, "upper", "c1")
	high, err := f.jobs.Create(ctx, CreateJobRequest{
		JobType:  "upper",
		Priority: 5,
		ChunkIDs: []string{"c2"},
	})
	require.NoError(t, err)

	worker := NewWorker(f.store, f.processor, 10*time.Millisecond, 0, testLogger())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- worker.Run(runCtx)
	}()

	// Both jobs reach a terminal state within a few poll cycles
	require.Eventually(t, func() bool {
		a, _ := f.store.GetJob(ctx, models.MustRecordIDString(lowJob.ID))
		b, _ := f.store.GetJob(ctx, models.MustRecordIDString(high.ID))
		return a.Status.Terminal() && b.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	a, _ := f.store.GetJob(ctx, models.MustRecordIDString(lowJob.ID))
	b, _ := f.store.GetJob(ctx, models.MustRecordIDString(high.ID))
	assert.Equal(t, models.JobStatusCompleted, a.Status)
	assert.Equal(t, models.JobStatusCompleted, b.Status)

	// The claimed-first high priority job was started no later than the low one
	require.NotNil(t, a.StartedAt)
	require.NotNil(t, b.StartedAt)
	assert.False(t, b.StartedAt.After(*a.StartedAt))
}

func TestWorkerStopsWhenIdle(t *testing.T) {
	f := newProcessorFixture()

	worker := NewWorker(f.store, f.processor, 10*time.Millisecond, 0, testLogger())

	runCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := worker.Run(runCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
