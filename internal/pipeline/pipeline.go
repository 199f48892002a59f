package pipeline

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/rkovacs/bookworm/internal/ai"
	"github.com/rkovacs/bookworm/internal/config"
	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/extract"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/queue"
	"github.com/rkovacs/bookworm/internal/repository"
	"github.com/rkovacs/bookworm/internal/storage"
)

// Pipeline owns the four stage queues and their workers. The API process
// constructs one to enqueue and inspect; the worker process additionally
// calls Start to run the stage handlers.
type Pipeline struct {
	records  *repository.Records
	reporter *Reporter
	queues   map[string]*queue.Queue
	order    []string
	workers  []*queue.Worker
	log      *logger.Logger
}

// New wires the stage queues, handlers and workers. The AI client and file
// fetcher are injected so tests can substitute fakes.
func New(db *gorm.DB, records *repository.Records, registry *extract.Registry, fetcher storage.FileFetcher, client ai.Client, qcfg config.QueueConfig, pcfg config.PipelineConfig, log *logger.Logger) (*Pipeline, error) {
	reporter := NewReporter(records, pcfg.LogMaxBytes, log)

	extractionQ := queue.New(db, domain.QueueExtraction, stageQueueConfig(qcfg, pcfg.Extraction), log)
	linguisticQ := queue.New(db, domain.QueueLinguistic, stageQueueConfig(qcfg, pcfg.Linguistic), log)
	enrichmentQ := queue.New(db, domain.QueueEnrichment, stageQueueConfig(qcfg, pcfg.Enrichment), log)
	validationQ := queue.New(db, domain.QueueValidation, stageQueueConfig(qcfg, pcfg.Validation), log)

	p := &Pipeline{
		records:  records,
		reporter: reporter,
		queues: map[string]*queue.Queue{
			domain.QueueExtraction: extractionQ,
			domain.QueueLinguistic: linguisticQ,
			domain.QueueEnrichment: enrichmentQ,
			domain.QueueValidation: validationQ,
		},
		order: []string{domain.QueueExtraction, domain.QueueLinguistic, domain.QueueEnrichment, domain.QueueValidation},
		log:   log.WithField(logger.FieldComponent, "pipeline"),
	}

	handlers := []struct {
		q *queue.Queue
		h queue.Handler
	}{
		{extractionQ, NewExtractionStage(records, registry, fetcher, linguisticQ, enrichmentQ, reporter, log).Handle},
		{linguisticQ, NewLinguisticStage(records, reporter).Handle},
		{enrichmentQ, NewEnrichmentStage(records, client, validationQ, reporter).Handle},
		{validationQ, NewValidationStage(records, reporter).Handle},
	}
	for _, hw := range handlers {
		w, err := queue.NewWorker(hw.q, hw.h, log)
		if err != nil {
			return nil, fmt.Errorf("create worker for queue %s: %w", hw.q.Name(), err)
		}
		p.workers = append(p.workers, w)
	}

	return p, nil
}

func stageQueueConfig(qcfg config.QueueConfig, st config.StageConfig) *queue.Config {
	return &queue.Config{
		DefaultAttempts: qcfg.DefaultAttempts,
		BackoffBase:     qcfg.BackoffBase,
		JobTimeout:      qcfg.JobTimeout,
		PollInterval:    qcfg.PollInterval,
		KeepCompleted:   qcfg.KeepCompleted,
		KeepFailed:      qcfg.KeepFailed,
		Concurrency:     st.Concurrency,
		RateMax:         st.RateMax,
		RateWindow:      st.RateWindow,
	}
}

// Start launches one worker per stage queue. It returns immediately;
// workers run until ctx is cancelled or Stop is called.
func (p *Pipeline) Start(ctx context.Context) {
	for _, w := range p.workers {
		w.Start(ctx)
	}
	p.log.Info("Pipeline workers started")
}

// Stop drains the workers and waits for in-flight jobs to settle.
func (p *Pipeline) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
	p.log.Info("Pipeline workers stopped")
}

// TriggerRequest asks for a record to be (re)processed from the top of the
// pipeline.
type TriggerRequest struct {
	DocumentID string
	Kind       domain.OwnerKind
	Priority   domain.Priority
	UserID     string
	Message    string
}

// EnqueueExtraction marks the record queued and enqueues an extraction job
// for it. It is also the requeue path for failed or stale records; a fresh
// run rewrites the stage outputs as it progresses.
func (p *Pipeline) EnqueueExtraction(ctx context.Context, req TriggerRequest) (*domain.QueueJob, error) {
	rec, err := p.records.FindByID(ctx, req.Kind, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", req.Kind, req.DocumentID, err)
	}
	if rec.SourceFileURL == "" {
		return nil, fmt.Errorf("%s %s has no source file", req.Kind, req.DocumentID)
	}

	message := req.Message
	if message == "" {
		message = "Queued for processing"
	}
	if err := p.reporter.Report(ctx, req.Kind, req.DocumentID, domain.StatusQueued, 0, message); err != nil {
		return nil, err
	}

	env := domain.ExtractionJob{
		JobSpine: domain.JobSpine{
			DocumentID: req.DocumentID,
			OwnerKind:  req.Kind,
			Priority:   req.Priority,
			UserID:     req.UserID,
		},
		FileType:      rec.FileType,
		SourceFileURL: rec.SourceFileURL,
	}
	job, err := p.queues[domain.QueueExtraction].Enqueue(ctx, "extract-document", env, &queue.Options{Priority: req.Priority})
	if err != nil {
		return nil, fmt.Errorf("enqueue extraction: %w", err)
	}

	p.log.WithFields(logger.Fields{
		logger.FieldDocumentID: req.DocumentID,
		logger.FieldJobID:      job.ID,
	}).Info("Extraction queued")
	return job, nil
}

// Queue returns the named stage queue, or nil if the name is unknown.
func (p *Pipeline) Queue(name string) *queue.Queue {
	return p.queues[name]
}

// Stats returns per-queue job counts keyed by queue name.
func (p *Pipeline) Stats(ctx context.Context) (map[string]*queue.Stats, error) {
	out := make(map[string]*queue.Stats, len(p.order))
	for _, name := range p.order {
		stats, err := p.queues[name].Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("stats for queue %s: %w", name, err)
		}
		out[name] = stats
	}
	return out, nil
}

// Clean purges every job record from every stage queue regardless of state.
func (p *Pipeline) Clean(ctx context.Context) error {
	for _, name := range p.order {
		if err := p.queues[name].Clean(ctx); err != nil {
			return fmt.Errorf("clean queue %s: %w", name, err)
		}
	}
	return nil
}
