package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/logger"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Config holds per-queue tuning. RateMax 0 disables the rate limiter.
type Config struct {
	DefaultAttempts int
	BackoffBase     time.Duration
	JobTimeout      time.Duration
	PollInterval    time.Duration
	KeepCompleted   int
	KeepFailed      int
	Concurrency     int
	RateMax         int
	RateWindow      time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.DefaultAttempts <= 0 {
		out.DefaultAttempts = 3
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = 5 * time.Second
	}
	if out.JobTimeout <= 0 {
		out.JobTimeout = 5 * time.Minute
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 500 * time.Millisecond
	}
	if out.KeepCompleted <= 0 {
		out.KeepCompleted = 100
	}
	if out.KeepFailed <= 0 {
		out.KeepFailed = 500
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 1
	}
	return out
}

// Options overrides queue defaults for a single enqueued job.
type Options struct {
	Priority domain.Priority
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
	Delay    time.Duration
}

// Stats holds aggregate job counts for one queue.
type Stats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Queue is a durable, priority-ordered job queue persisted in the shared
// database. Dequeue serves higher priority values first and FIFO within
// equal priority. The optional rate limiter paces job starts independently
// of worker concurrency.
type Queue struct {
	db      *gorm.DB
	name    string
	cfg     Config
	limiter *rate.Limiter
	log     *logger.Logger
}

// New creates a queue bound to the given database table and name.
func New(db *gorm.DB, name string, cfg *Config, log *logger.Logger) *Queue {
	resolved := cfg.withDefaults()

	var limiter *rate.Limiter
	if resolved.RateMax > 0 && resolved.RateWindow > 0 {
		// Pace starts window/max apart so any rolling window of RateWindow
		// contains at most RateMax starts.
		limiter = rate.NewLimiter(rate.Every(resolved.RateWindow/time.Duration(resolved.RateMax)), 1)
	}

	return &Queue{
		db:      db,
		name:    name,
		cfg:     resolved,
		limiter: limiter,
		log:     log.WithField(logger.FieldQueue, name),
	}
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Config returns the resolved queue configuration.
func (q *Queue) Config() Config {
	return q.cfg
}

// Enqueue persists a job with the given type and JSON-encodable payload.
// Nil opts uses the queue defaults (normal priority, immediate run).
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload interface{}, opts *Options) (*domain.QueueJob, error) {
	if opts == nil {
		opts = &Options{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}

	priority := opts.Priority
	if priority == 0 {
		priority = domain.PriorityNormal
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = q.cfg.DefaultAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = q.cfg.BackoffBase
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = q.cfg.JobTimeout
	}

	job := &domain.QueueJob{
		ID:          uuid.New().String(),
		Queue:       q.name,
		Type:        jobType,
		Priority:    int(priority),
		Payload:     string(body),
		State:       domain.JobStateWaiting,
		MaxAttempts: attempts,
		BackoffMs:   backoff.Milliseconds(),
		TimeoutMs:   timeout.Milliseconds(),
		NextRunAt:   time.Now().Add(opts.Delay),
	}

	if err := q.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	q.log.WithFields(logger.Fields{
		logger.FieldJobID: job.ID,
		"type":            jobType,
		"priority":        job.Priority,
	}).Debug("Job enqueued")

	return job, nil
}

// Dequeue claims the next runnable job, or returns (nil, nil) when the queue
// has none due. The claim is an optimistic compare-and-set on the job state,
// so concurrent dispatchers never run the same job twice.
func (q *Queue) Dequeue(ctx context.Context) (*domain.QueueJob, error) {
	runnable := []domain.JobState{domain.JobStateWaiting, domain.JobStateDelayed}

	for i := 0; i < 5; i++ {
		var job domain.QueueJob
		err := q.db.WithContext(ctx).
			Where("queue = ? AND state IN ? AND next_run_at <= ?", q.name, runnable, time.Now()).
			Order("priority DESC, created_at ASC").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query queue %s: %w", q.name, err)
		}

		now := time.Now()
		res := q.db.WithContext(ctx).Model(&domain.QueueJob{}).
			Where("id = ? AND state = ?", job.ID, job.State).
			Updates(map[string]interface{}{
				"state":         domain.JobStateActive,
				"started_at":    now,
				"attempts_made": gorm.Expr("attempts_made + 1"),
			})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			job.State = domain.JobStateActive
			job.StartedAt = &now
			job.AttemptsMade++
			return &job, nil
		}
		// Lost the race to another dispatcher; try the next candidate.
	}
	return nil, nil
}

// Complete marks an active job as successfully finished and prunes old
// terminal jobs per the retention policy.
func (q *Queue) Complete(ctx context.Context, job *domain.QueueJob) error {
	now := time.Now()
	err := q.db.WithContext(ctx).Model(&domain.QueueJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"state":       domain.JobStateCompleted,
			"finished_at": now,
			"last_error":  "",
		}).Error
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}
	q.prune(ctx, domain.JobStateCompleted, q.cfg.KeepCompleted)
	return nil
}

// Fail records a failed attempt. The job is re-scheduled with exponential
// backoff (base × 2^(attempt-1)) while attempts remain, otherwise it is
// marked terminally failed.
func (q *Queue) Fail(ctx context.Context, job *domain.QueueJob, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}

	if job.AttemptsMade < job.MaxAttempts {
		delay := job.Backoff()
		for i := 1; i < job.AttemptsMade; i++ {
			delay *= 2
		}
		err := q.db.WithContext(ctx).Model(&domain.QueueJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"state":       domain.JobStateDelayed,
				"next_run_at": time.Now().Add(delay),
				"last_error":  msg,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to delay job %s: %w", job.ID, err)
		}
		q.log.WithFields(logger.Fields{
			logger.FieldJobID:   job.ID,
			logger.FieldAttempt: job.AttemptsMade,
			"retry_in":          delay.String(),
		}).Warn("Job failed, scheduled for retry")
		return nil
	}

	now := time.Now()
	err := q.db.WithContext(ctx).Model(&domain.QueueJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"state":       domain.JobStateFailed,
			"finished_at": now,
			"last_error":  msg,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
	}
	q.log.WithFields(logger.Fields{
		logger.FieldJobID:   job.ID,
		logger.FieldAttempt: job.AttemptsMade,
	}).WithError(jobErr).Error("Job failed permanently, attempts exhausted")
	q.prune(ctx, domain.JobStateFailed, q.cfg.KeepFailed)
	return nil
}

// Stats returns aggregate job counts per state for this queue.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	type row struct {
		State domain.JobState
		N     int64
	}
	var rows []row
	err := q.db.WithContext(ctx).Model(&domain.QueueJob{}).
		Select("state, count(*) as n").
		Where("queue = ?", q.name).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stats for queue %s: %w", q.name, err)
	}

	stats := &Stats{}
	for _, r := range rows {
		switch r.State {
		case domain.JobStateWaiting:
			stats.Waiting = r.N
		case domain.JobStateActive:
			stats.Active = r.N
		case domain.JobStateDelayed:
			stats.Delayed = r.N
		case domain.JobStateCompleted:
			stats.Completed = r.N
		case domain.JobStateFailed:
			stats.Failed = r.N
		}
	}
	return stats, nil
}

// Clean removes every job record for this queue regardless of state. It is
// an operator maintenance sweep and is not selective; in-flight handlers
// keep running but their bookkeeping rows are gone.
func (q *Queue) Clean(ctx context.Context) error {
	if err := q.db.WithContext(ctx).Where("queue = ?", q.name).Delete(&domain.QueueJob{}).Error; err != nil {
		return fmt.Errorf("failed to clean queue %s: %w", q.name, err)
	}
	q.log.Info("Queue cleaned")
	return nil
}

// prune deletes terminal jobs beyond the retention count, oldest first.
// Best effort: pruning failures are logged, never propagated.
func (q *Queue) prune(ctx context.Context, state domain.JobState, keep int) {
	sub := q.db.Model(&domain.QueueJob{}).
		Select("id").
		Where("queue = ? AND state = ?", q.name, state).
		Order("finished_at DESC").
		Limit(keep)
	err := q.db.WithContext(ctx).
		Where("queue = ? AND state = ? AND id NOT IN (?)", q.name, state, sub).
		Delete(&domain.QueueJob{}).Error
	if err != nil {
		q.log.WithError(err).Warn("Failed to prune terminal jobs")
	}
}

// WaitForSlot blocks until the queue's rate limiter permits the next job
// start. Queues without a limiter return immediately.
func (q *Queue) WaitForSlot(ctx context.Context) error {
	if q.limiter == nil {
		return nil
	}
	return q.limiter.Wait(ctx)
}
