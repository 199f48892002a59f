package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/extract"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/queue"
	"github.com/rkovacs/bookworm/internal/repository"
	"github.com/rkovacs/bookworm/internal/storage"
)

// ExtractionStage downloads the source file, extracts plain text plus
// metadata, persists both onto the owning record and fans out one
// linguistic-analysis job and one AI-enrichment job.
type ExtractionStage struct {
	records     *repository.Records
	registry    *extract.Registry
	fetcher     storage.FileFetcher
	linguisticQ *queue.Queue
	enrichmentQ *queue.Queue
	reporter    *Reporter
	log         *logger.Logger
}

func NewExtractionStage(records *repository.Records, registry *extract.Registry, fetcher storage.FileFetcher, linguisticQ, enrichmentQ *queue.Queue, reporter *Reporter, log *logger.Logger) *ExtractionStage {
	return &ExtractionStage{
		records:     records,
		registry:    registry,
		fetcher:     fetcher,
		linguisticQ: linguisticQ,
		enrichmentQ: enrichmentQ,
		reporter:    reporter,
		log:         log.WithField(logger.FieldStage, domain.QueueExtraction),
	}
}

// Handle processes one extraction job.
func (s *ExtractionStage) Handle(ctx context.Context, job *domain.QueueJob) error {
	var env domain.ExtractionJob
	if err := json.Unmarshal([]byte(job.Payload), &env); err != nil {
		return fmt.Errorf("decode extraction payload: %w", err)
	}

	ctx = logger.SetDocumentID(ctx, env.DocumentID)
	ctx = logger.SetStage(ctx, domain.QueueExtraction)

	if err := s.reporter.Report(ctx, env.OwnerKind, env.DocumentID, domain.StatusExtracting, 10, "Starting text extraction"); err != nil {
		return err
	}

	extractor, err := s.registry.For(env.FileType)
	if err != nil {
		return s.fail(ctx, env, err)
	}

	data, err := s.fetcher.Fetch(ctx, env.SourceFileURL)
	if err != nil {
		return s.fail(ctx, env, fmt.Errorf("fetch source file: %w", err))
	}

	res, err := extractor.Extract(ctx, data)
	if err != nil {
		return s.fail(ctx, env, &ExtractionError{FileType: env.FileType, Err: err})
	}
	if strings.TrimSpace(res.Text) == "" {
		return s.fail(ctx, env, ErrEmptyExtraction)
	}

	fields := map[string]interface{}{
		"extracted_text": res.Text,
		"word_count":     res.Metadata.WordCount,
		"language":       res.Metadata.Language,
	}
	if res.Metadata.PageCount > 0 {
		fields["page_count"] = res.Metadata.PageCount
	}
	if s.records.HasChapters(env.OwnerKind) && len(res.Chapters) > 0 {
		fields["chapters"] = domain.ChapterList(res.Chapters)
	}
	if err := s.records.UpdateFields(ctx, env.OwnerKind, env.DocumentID, fields); err != nil {
		return s.fail(ctx, env, fmt.Errorf("persist extraction results: %w", err))
	}

	logger.With(logger.Fields{
		logger.FieldCount: res.Metadata.WordCount,
		"language":        res.Metadata.Language,
	}).Info(ctx, "Extraction complete for %s %s", env.OwnerKind, env.DocumentID)

	if err := s.reporter.Report(ctx, env.OwnerKind, env.DocumentID, domain.StatusExtracting, 40,
		fmt.Sprintf("Extraction complete: %d words, language %s", res.Metadata.WordCount, res.Metadata.Language)); err != nil {
		return err
	}

	return s.fanOut(ctx, env, res)
}

// fanOut enqueues the two independent downstream jobs at the same priority
// as the extraction job. The linguistic job carries the text inline; the
// enrichment job re-reads the record when it runs.
func (s *ExtractionStage) fanOut(ctx context.Context, env domain.ExtractionJob, res *extract.Result) error {
	opts := &queue.Options{Priority: env.Priority}

	linguistic := domain.LinguisticJob{
		JobSpine:      env.JobSpine,
		ExtractedText: res.Text,
		Language:      res.Metadata.Language,
		Features:      domain.AllAnalysisFeatures(),
	}
	if _, err := s.linguisticQ.Enqueue(ctx, "analyze-document", linguistic, opts); err != nil {
		return s.fail(ctx, env, fmt.Errorf("enqueue linguistic analysis: %w", err))
	}

	enrichment := domain.EnrichmentJob{
		JobSpine:    env.JobSpine,
		ContentType: string(env.OwnerKind),
		Tasks:       domain.DefaultEnrichmentTasks(),
	}
	if _, err := s.enrichmentQ.Enqueue(ctx, "enrich-document", enrichment, opts); err != nil {
		return s.fail(ctx, env, fmt.Errorf("enqueue AI enrichment: %w", err))
	}

	s.log.WithFields(logger.Fields{
		logger.FieldDocumentID: env.DocumentID,
		logger.FieldCount:      2,
	}).Debug("Fanned out downstream jobs")
	return nil
}

func (s *ExtractionStage) fail(ctx context.Context, env domain.ExtractionJob, cause error) error {
	s.reporter.ReportFailure(ctx, env.OwnerKind, env.DocumentID, domain.QueueExtraction, 10, cause)
	return cause
}
