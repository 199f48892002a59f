package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/repository"
)

// Score penalties per failed rule.
const (
	penaltyError   = 20
	penaltyWarning = 10

	// minContentWords is the word count below which content-min-length fails.
	minContentWords = 100
)

// ValidationStage is the terminal stage: it scores the record against the
// rule set carried in the payload, stores issues and recommendations, and
// marks processing complete.
type ValidationStage struct {
	records  *repository.Records
	reporter *Reporter
}

func NewValidationStage(records *repository.Records, reporter *Reporter) *ValidationStage {
	return &ValidationStage{records: records, reporter: reporter}
}

// Handle processes one validation job.
func (s *ValidationStage) Handle(ctx context.Context, job *domain.QueueJob) error {
	var env domain.ValidationJob
	if err := json.Unmarshal([]byte(job.Payload), &env); err != nil {
		return fmt.Errorf("decode validation payload: %w", err)
	}

	ctx = logger.SetDocumentID(ctx, env.DocumentID)
	ctx = logger.SetStage(ctx, domain.QueueValidation)

	if err := s.reporter.Report(ctx, env.OwnerKind, env.DocumentID, domain.StatusValidating, 90, "Starting validation"); err != nil {
		return err
	}

	rec, err := s.records.FindByID(ctx, env.OwnerKind, env.DocumentID)
	if err != nil {
		return s.fail(ctx, env, fmt.Errorf("load owning record: %w", err))
	}

	score, issues := evaluate(rec, env.Rules)
	now := time.Now().UTC()

	fields := map[string]interface{}{
		"validation_score":     score,
		"validation_issues":    issues,
		"recommendations":      recommendationsFor(issues),
		"processing_completed": true,
		"processed_at":         &now,
	}
	if err := s.records.UpdateFields(ctx, env.OwnerKind, env.DocumentID, fields); err != nil {
		return s.fail(ctx, env, fmt.Errorf("persist validation results: %w", err))
	}

	logger.With(logger.Fields{
		"score":           score,
		logger.FieldCount: len(issues),
	}).Info(ctx, "Validation complete for %s %s", env.OwnerKind, env.DocumentID)

	return s.reporter.Report(ctx, env.OwnerKind, env.DocumentID, domain.StatusCompleted, 100,
		fmt.Sprintf("Processing completed with score %d", score))
}

func (s *ValidationStage) fail(ctx context.Context, env domain.ValidationJob, cause error) error {
	s.reporter.ReportFailure(ctx, env.OwnerKind, env.DocumentID, domain.QueueValidation, 90, cause)
	return cause
}

// evaluate runs every rule against the record. The score starts at 100 and
// loses 20 per failed error rule and 10 per failed warning rule, clamped
// to [0, 100]. Unknown rule IDs are skipped.
func evaluate(rec *repository.Record, rules []domain.ValidationRule) (int, domain.IssueList) {
	score := 100
	var issues domain.IssueList

	for _, rule := range rules {
		check, ok := ruleChecks[rule.ID]
		if !ok {
			continue
		}
		message, suggestions, passed := check(rec)
		if passed {
			continue
		}
		issues = append(issues, domain.ValidationIssue{
			RuleID:      rule.ID,
			Severity:    rule.Severity,
			Message:     message,
			Suggestions: suggestions,
		})
		switch rule.Severity {
		case domain.SeverityError:
			score -= penaltyError
		default:
			score -= penaltyWarning
		}
	}

	if score < 0 {
		score = 0
	}
	return score, issues
}

// ruleCheck inspects one aspect of a record. It returns the issue message
// and suggestions used when the check fails.
type ruleCheck func(rec *repository.Record) (message string, suggestions []string, passed bool)

var ruleChecks = map[string]ruleCheck{
	"content-min-length": func(rec *repository.Record) (string, []string, bool) {
		if rec.WordCount >= minContentWords {
			return "", nil, true
		}
		return fmt.Sprintf("Content has %d words; at least %d are required", rec.WordCount, minContentWords),
			[]string{"Verify the source file is complete and readable"}, false
	},
	"language-detected": func(rec *repository.Record) (string, []string, bool) {
		if rec.Language != "" {
			return "", nil, true
		}
		return "No language was detected for the content",
			[]string{"Set the language manually if detection keeps failing"}, false
	},
	"summary-present": func(rec *repository.Record) (string, []string, bool) {
		if rec.AISummary != "" || rec.AutoSummary != "" {
			return "", nil, true
		}
		return "No summary was generated",
			[]string{"Re-run processing to regenerate the summary"}, false
	},
	"quiz-present": func(rec *repository.Record) (string, []string, bool) {
		if len(rec.QuizQuestions) > 0 {
			return "", nil, true
		}
		return "No quiz questions were generated",
			[]string{"Re-run processing to regenerate quiz questions"}, false
	},
	"keywords-present": func(rec *repository.Record) (string, []string, bool) {
		if len(rec.Keywords) > 0 {
			return "", nil, true
		}
		return "No keywords were extracted",
			[]string{"Linguistic analysis may still be running; re-validate later"}, false
	},
}

// recommendationsFor summarizes the issue list into reader-facing advice.
func recommendationsFor(issues domain.IssueList) domain.StringArray {
	if len(issues) == 0 {
		return domain.StringArray{"Content passed all quality checks"}
	}
	out := make(domain.StringArray, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Suggestions...)
	}
	return out
}
