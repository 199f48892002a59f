package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "queue.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.QueueJob{}))
	return db
}

func newTestQueue(t *testing.T, cfg *Config) *Queue {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	log := logger.New(&logger.Config{Level: "error", ServiceName: "test"})
	return New(newTestDB(t), "test-queue", cfg, log)
}

func reload(t *testing.T, q *Queue, id string) *domain.QueueJob {
	t.Helper()
	var job domain.QueueJob
	require.NoError(t, q.db.First(&job, "id = ?", id).Error)
	return &job
}

func TestEnqueueDefaults(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "test-job", map[string]string{"k": "v"}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.JobStateWaiting, job.State)
	assert.Equal(t, int(domain.PriorityNormal), job.Priority)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.Equal(t, 0, job.AttemptsMade)
	assert.JSONEq(t, `{"k":"v"}`, job.Payload)
}

func TestDequeueOrder(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	t.Run("higher priority first", func(t *testing.T) {
		low, err := q.Enqueue(ctx, "j", nil, &Options{Priority: domain.PriorityLow})
		require.NoError(t, err)
		critical, err := q.Enqueue(ctx, "j", nil, &Options{Priority: domain.PriorityCritical})
		require.NoError(t, err)
		normal, err := q.Enqueue(ctx, "j", nil, &Options{Priority: domain.PriorityNormal})
		require.NoError(t, err)

		for _, want := range []string{critical.ID, normal.ID, low.ID} {
			got, err := q.Dequeue(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, want, got.ID)
		}
	})

	t.Run("fifo within equal priority", func(t *testing.T) {
		first, err := q.Enqueue(ctx, "j", nil, &Options{Priority: domain.PriorityHigh})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		second, err := q.Enqueue(ctx, "j", nil, &Options{Priority: domain.PriorityHigh})
		require.NoError(t, err)

		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		got, err = q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
	})
}

func TestDequeueEmpty(t *testing.T) {
	q := newTestQueue(t, nil)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDequeueSkipsDelayedJobs(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "j", nil, &Options{Delay: time.Hour})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDequeueClaimsExactlyOnce(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	enqueued, err := q.Enqueue(ctx, "j", nil, nil)
	require.NoError(t, err)

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, enqueued.ID, first.ID)
	assert.Equal(t, domain.JobStateActive, first.State)
	assert.Equal(t, 1, first.AttemptsMade)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, second, "an active job must not be claimable again")
}

func TestFailSchedulesRetryWithBackoff(t *testing.T) {
	q := newTestQueue(t, &Config{BackoffBase: 20 * time.Millisecond})
	ctx := context.Background()

	enqueued, err := q.Enqueue(ctx, "j", nil, &Options{Attempts: 2})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, q.Fail(ctx, job, errors.New("boom")))

	stored := reload(t, q, enqueued.ID)
	assert.Equal(t, domain.JobStateDelayed, stored.State)
	assert.Equal(t, "boom", stored.LastError)
	assert.True(t, stored.NextRunAt.After(time.Now()), "retry must be scheduled in the future")

	// Not due yet.
	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Due after the backoff elapses.
	time.Sleep(40 * time.Millisecond)
	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.AttemptsMade)

	// Attempts exhausted: the next failure is terminal.
	require.NoError(t, q.Fail(ctx, got, errors.New("boom again")))
	stored = reload(t, q, enqueued.ID)
	assert.Equal(t, domain.JobStateFailed, stored.State)
	assert.Equal(t, "boom again", stored.LastError)
	assert.NotNil(t, stored.FinishedAt)
}

func TestCompletePrunesOldJobs(t *testing.T) {
	q := newTestQueue(t, &Config{KeepCompleted: 2})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := q.Enqueue(ctx, "j", nil, nil)
		require.NoError(t, err)
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		require.NoError(t, q.Complete(ctx, job))
		time.Sleep(5 * time.Millisecond)
	}

	var count int64
	require.NoError(t, q.db.Model(&domain.QueueJob{}).
		Where("queue = ? AND state = ?", q.name, domain.JobStateCompleted).
		Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCleanRemovesJobsInEveryState(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "j", nil, nil)
	require.NoError(t, err)
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, job))

	_, err = q.Enqueue(ctx, "j", nil, &Options{Attempts: 1})
	require.NoError(t, err)
	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, job, errors.New("boom")))

	_, err = q.Enqueue(ctx, "j", nil, &Options{Delay: time.Hour})
	require.NoError(t, err)

	require.NoError(t, q.Clean(ctx))

	var count int64
	require.NoError(t, q.db.Model(&domain.QueueJob{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStats(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "j", nil, nil)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "j", nil, nil)
	require.NoError(t, err)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, job))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Waiting)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(0), stats.Active)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestWaitForSlotPacesStarts(t *testing.T) {
	q := newTestQueue(t, &Config{RateMax: 2, RateWindow: 100 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, q.WaitForSlot(ctx))
	}
	// Starts are paced window/max apart: the second and third waits take
	// roughly 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitForSlotUnlimited(t *testing.T) {
	q := newTestQueue(t, nil)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, q.WaitForSlot(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
