package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/logger"
)

func newTestWorker(t *testing.T, q *Queue, handler Handler) *Worker {
	t.Helper()
	log := logger.New(&logger.Config{Level: "error", ServiceName: "test"})
	w, err := NewWorker(q, handler, log)
	require.NoError(t, err)
	return w
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorkerProcessesJobs(t *testing.T) {
	q := newTestQueue(t, &Config{PollInterval: 10 * time.Millisecond, Concurrency: 2})
	ctx := context.Background()

	var processed int64
	w := newTestWorker(t, q, func(ctx context.Context, job *domain.QueueJob) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, "j", nil, nil)
		require.NoError(t, err)
	}

	w.Start(ctx)
	defer w.Stop()

	waitFor(t, 5*time.Second, func() bool {
		return atomic.LoadInt64(&processed) == 3
	})

	waitFor(t, 5*time.Second, func() bool {
		stats, err := q.Stats(ctx)
		return err == nil && stats.Completed == 3 && stats.Active == 0
	})
}

func TestWorkerRetriesUntilSuccess(t *testing.T) {
	q := newTestQueue(t, &Config{
		PollInterval: 10 * time.Millisecond,
		BackoffBase:  10 * time.Millisecond,
	})
	ctx := context.Background()

	var attempts int64
	w := newTestWorker(t, q, func(ctx context.Context, job *domain.QueueJob) error {
		if atomic.AddInt64(&attempts, 1) == 1 {
			return errors.New("transient failure")
		}
		return nil
	})

	enqueued, err := q.Enqueue(ctx, "j", nil, &Options{Attempts: 3})
	require.NoError(t, err)

	w.Start(ctx)
	defer w.Stop()

	waitFor(t, 5*time.Second, func() bool {
		return reload(t, q, enqueued.ID).State == domain.JobStateCompleted
	})
	assert.Equal(t, int64(2), atomic.LoadInt64(&attempts))
}

func TestWorkerFailsJobAfterAttemptsExhausted(t *testing.T) {
	q := newTestQueue(t, &Config{
		PollInterval: 10 * time.Millisecond,
		BackoffBase:  10 * time.Millisecond,
	})
	ctx := context.Background()

	w := newTestWorker(t, q, func(ctx context.Context, job *domain.QueueJob) error {
		return errors.New("permanent failure")
	})

	enqueued, err := q.Enqueue(ctx, "j", nil, &Options{Attempts: 2})
	require.NoError(t, err)

	w.Start(ctx)
	defer w.Stop()

	waitFor(t, 5*time.Second, func() bool {
		return reload(t, q, enqueued.ID).State == domain.JobStateFailed
	})

	stored := reload(t, q, enqueued.ID)
	assert.Equal(t, 2, stored.AttemptsMade)
	assert.Equal(t, "permanent failure", stored.LastError)
}

func TestWorkerEnforcesJobTimeout(t *testing.T) {
	q := newTestQueue(t, &Config{PollInterval: 10 * time.Millisecond})
	ctx := context.Background()

	release := make(chan struct{})
	defer close(release)
	w := newTestWorker(t, q, func(ctx context.Context, job *domain.QueueJob) error {
		// Simulate a stuck handler that ignores cancellation.
		<-release
		return nil
	})

	enqueued, err := q.Enqueue(ctx, "j", nil, &Options{Attempts: 1, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	w.Start(ctx)
	defer w.Stop()

	waitFor(t, 5*time.Second, func() bool {
		return reload(t, q, enqueued.ID).State == domain.JobStateFailed
	})
	assert.Equal(t, ErrJobTimeout.Error(), reload(t, q, enqueued.ID).LastError)
}
