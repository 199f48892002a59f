package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/logger"
)

// ErrJobTimeout is reported when a job exceeds its configured execution
// limit. The queue treats the job as failed even if the handler is still
// running; there is no cooperative cancellation beyond the context.
var ErrJobTimeout = errors.New("job exceeded its configured timeout")

// Handler processes one claimed job. A non-nil error sends the job through
// the queue's retry/backoff policy.
type Handler func(ctx context.Context, job *domain.QueueJob) error

// Worker consumes one queue with a bounded goroutine pool. Each queue gets
// its own Worker, so a slow stage never starves another stage's throughput.
type Worker struct {
	queue   *Queue
	handler Handler
	pool    *ants.Pool
	log     *logger.Logger

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// NewWorker creates a worker for the queue with the queue's configured
// concurrency.
func NewWorker(q *Queue, handler Handler, log *logger.Logger) (*Worker, error) {
	pool, err := ants.NewPool(q.Config().Concurrency)
	if err != nil {
		return nil, err
	}
	return &Worker{
		queue:   q,
		handler: handler,
		pool:    pool,
		log:     log.WithField(logger.FieldQueue, q.Name()),
		stop:    make(chan struct{}),
	}, nil
}

// Start launches the dispatch loop. It returns immediately; call Stop to
// drain in-flight jobs.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.dispatch(ctx)
	}()
	w.log.WithField("concurrency", w.queue.Config().Concurrency).Info("Worker started")
}

// Stop halts dispatching, waits for in-flight jobs, and releases the pool.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
	w.pool.Release()
	w.log.Info("Worker stopped")
}

func (w *Worker) dispatch(ctx context.Context) {
	poll := w.queue.Config().PollInterval
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.log.WithError(err).Error("Dequeue failed")
			w.sleep(ctx, poll)
			continue
		}
		if job == nil {
			w.sleep(ctx, poll)
			continue
		}

		// Pace starts per the queue's rate limit; the claimed job stays
		// active while we wait for a slot.
		if err := w.queue.WaitForSlot(ctx); err != nil {
			_ = w.queue.Fail(ctx, job, err)
			return
		}

		w.wg.Add(1)
		// Submit blocks when all pool workers are busy, which bounds the
		// number of claimed-but-unstarted jobs.
		if err := w.pool.Submit(func() {
			defer w.wg.Done()
			w.run(ctx, job)
		}); err != nil {
			w.wg.Done()
			_ = w.queue.Fail(ctx, job, err)
		}
	}
}

func (w *Worker) run(ctx context.Context, job *domain.QueueJob) {
	jobCtx := logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID:   job.ID,
		logger.FieldAttempt: job.AttemptsMade,
	})
	jobCtx, cancel := context.WithTimeout(jobCtx, job.Timeout())
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- w.handler(jobCtx, job)
	}()

	select {
	case err := <-done:
		if err != nil {
			if failErr := w.queue.Fail(ctx, job, err); failErr != nil {
				w.log.WithError(failErr).Error("Failed to record job failure")
			}
			return
		}
		if err := w.queue.Complete(ctx, job); err != nil {
			w.log.WithError(err).Error("Failed to record job completion")
			return
		}
		logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Debug(jobCtx, "Job completed")
	case <-jobCtx.Done():
		// Unilateral timeout: the handler may still be running, but the
		// queue no longer waits for it. The bookkeeping write uses a fresh
		// context because jobCtx is already done, and on shutdown the
		// dispatcher context may be too.
		cause := jobCtx.Err()
		if errors.Is(cause, context.DeadlineExceeded) {
			cause = ErrJobTimeout
		}
		if failErr := w.queue.Fail(context.Background(), job, cause); failErr != nil {
			w.log.WithError(failErr).Error("Failed to record job timeout")
		}
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.stop:
	case <-timer.C:
	}
}
