package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rkovacs/bookworm/internal/ai"
	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/queue"
	"github.com/rkovacs/bookworm/internal/repository"
)

// EnrichmentStage calls the AI backend for the requested tasks and chains
// into validation. The payload carries no text: this stage races the
// linguistic sibling, so it reads the current extracted text off the record.
type EnrichmentStage struct {
	records     *repository.Records
	client      ai.Client
	validationQ *queue.Queue
	reporter    *Reporter
}

func NewEnrichmentStage(records *repository.Records, client ai.Client, validationQ *queue.Queue, reporter *Reporter) *EnrichmentStage {
	return &EnrichmentStage{
		records:     records,
		client:      client,
		validationQ: validationQ,
		reporter:    reporter,
	}
}

// Handle processes one AI-enrichment job.
func (s *EnrichmentStage) Handle(ctx context.Context, job *domain.QueueJob) error {
	var env domain.EnrichmentJob
	if err := json.Unmarshal([]byte(job.Payload), &env); err != nil {
		return fmt.Errorf("decode enrichment payload: %w", err)
	}

	ctx = logger.SetDocumentID(ctx, env.DocumentID)
	ctx = logger.SetStage(ctx, domain.QueueEnrichment)

	if err := s.reporter.Report(ctx, env.OwnerKind, env.DocumentID, domain.StatusEnriching, 70, "Starting AI enrichment"); err != nil {
		return err
	}

	rec, err := s.records.FindByID(ctx, env.OwnerKind, env.DocumentID)
	if err != nil {
		return s.fail(ctx, env, fmt.Errorf("load owning record: %w", err))
	}
	if strings.TrimSpace(rec.ExtractedText) == "" {
		return s.fail(ctx, env, ErrMissingText)
	}

	res, err := s.client.Enrich(ctx, &ai.Request{
		Text:        rec.ExtractedText,
		ContentType: env.ContentType,
		Tasks:       env.Tasks,
		Context:     env.Context,
	})
	if err != nil {
		return s.fail(ctx, env, fmt.Errorf("AI enrichment: %w", err))
	}

	fields := map[string]interface{}{}
	if res.Summary != "" {
		fields["ai_summary"] = res.Summary
	}
	if len(res.Concepts) > 0 {
		fields["concepts"] = res.Concepts
	}
	if len(res.Questions) > 0 {
		fields["quiz_questions"] = res.Questions
	}
	if res.Difficulty != "" {
		fields["difficulty"] = res.Difficulty
	}
	if len(fields) > 0 {
		if err := s.records.UpdateFields(ctx, env.OwnerKind, env.DocumentID, fields); err != nil {
			return s.fail(ctx, env, fmt.Errorf("persist enrichment results: %w", err))
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(res.Questions),
		"model":           s.client.Model(),
	}).Info(ctx, "AI enrichment complete for %s %s", env.OwnerKind, env.DocumentID)

	if err := s.reporter.Report(ctx, env.OwnerKind, env.DocumentID, domain.StatusEnriching, 85, "AI enrichment complete"); err != nil {
		return err
	}

	validation := domain.ValidationJob{
		JobSpine:       env.JobSpine,
		ValidationType: "content-quality",
		Rules:          domain.DefaultValidationRules(),
	}
	if _, err := s.validationQ.Enqueue(ctx, "validate-document", validation, &queue.Options{Priority: env.Priority}); err != nil {
		return s.fail(ctx, env, fmt.Errorf("enqueue validation: %w", err))
	}
	return nil
}

func (s *EnrichmentStage) fail(ctx context.Context, env domain.EnrichmentJob, cause error) error {
	s.reporter.ReportFailure(ctx, env.OwnerKind, env.DocumentID, domain.QueueEnrichment, 70, cause)
	return cause
}
