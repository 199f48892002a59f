package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/linguistics"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/repository"
)

// LinguisticStage runs in-process text analytics over the extracted text
// carried in the job payload. It is a leaf stage: it writes its outputs
// and enqueues nothing.
type LinguisticStage struct {
	records  *repository.Records
	reporter *Reporter
}

func NewLinguisticStage(records *repository.Records, reporter *Reporter) *LinguisticStage {
	return &LinguisticStage{records: records, reporter: reporter}
}

// Handle processes one linguistic-analysis job.
func (s *LinguisticStage) Handle(ctx context.Context, job *domain.QueueJob) error {
	var env domain.LinguisticJob
	if err := json.Unmarshal([]byte(job.Payload), &env); err != nil {
		return fmt.Errorf("decode linguistic payload: %w", err)
	}

	ctx = logger.SetDocumentID(ctx, env.DocumentID)
	ctx = logger.SetStage(ctx, domain.QueueLinguistic)

	if strings.TrimSpace(env.ExtractedText) == "" {
		return s.fail(ctx, env, ErrMissingText)
	}

	if err := s.reporter.Report(ctx, env.OwnerKind, env.DocumentID, domain.StatusAnalyzing, 50, "Starting linguistic analysis"); err != nil {
		return err
	}

	res := linguistics.Analyze(env.ExtractedText, env.Language, env.Features)

	// Only columns with actual output are written, so a rerun with fewer
	// features never erases earlier results.
	fields := map[string]interface{}{}
	if len(res.Keywords) > 0 {
		fields["keywords"] = domain.StringArray(res.Keywords)
	}
	if res.Summary != "" {
		fields["auto_summary"] = res.Summary
	}
	if res.Sentiment != "" {
		fields["sentiment"] = res.Sentiment
	}
	if len(res.Entities) > 0 {
		fields["entities"] = domain.StringArray(res.Entities)
	}
	if len(fields) > 0 {
		if err := s.records.UpdateFields(ctx, env.OwnerKind, env.DocumentID, fields); err != nil {
			return s.fail(ctx, env, fmt.Errorf("persist analysis results: %w", err))
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(res.Keywords),
		"sentiment":       res.Sentiment,
	}).Info(ctx, "Linguistic analysis complete for %s %s", env.OwnerKind, env.DocumentID)

	return s.reporter.Report(ctx, env.OwnerKind, env.DocumentID, domain.StatusAnalyzing, 65, "Linguistic analysis complete")
}

func (s *LinguisticStage) fail(ctx context.Context, env domain.LinguisticJob, cause error) error {
	s.reporter.ReportFailure(ctx, env.OwnerKind, env.DocumentID, domain.QueueLinguistic, 50, cause)
	return cause
}
