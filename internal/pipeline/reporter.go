package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/repository"
)

// DefaultLogMaxBytes caps the processing log when no limit is configured.
const DefaultLogMaxBytes = 16 * 1024

// Reporter writes stage progress onto the owning record: it sets the
// processing status and appends a timestamped line to the processing log.
// Only those two columns are touched, so concurrent stages never clobber
// each other's result fields.
type Reporter struct {
	records  *repository.Records
	maxBytes int
	log      *logger.Logger
}

func NewReporter(records *repository.Records, maxBytes int, log *logger.Logger) *Reporter {
	if maxBytes <= 0 {
		maxBytes = DefaultLogMaxBytes
	}
	return &Reporter{records: records, maxBytes: maxBytes, log: log}
}

// Report updates the record's status and appends a progress line in the
// form "[timestamp] <status> <progress>% - <message>".
func (r *Reporter) Report(ctx context.Context, kind domain.OwnerKind, id string, status domain.ProcessingStatus, progress int, message string) error {
	rec, err := r.records.FindByID(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("load %s %s for progress report: %w", kind, id, err)
	}

	line := fmt.Sprintf("[%s] %s %d%% - %s\n",
		time.Now().UTC().Format(time.RFC3339), status, progress, message)

	return r.records.UpdateFields(ctx, kind, id, map[string]interface{}{
		"processing_status": status,
		"processing_log":    appendCapped(rec.ProcessingLog, line, r.maxBytes),
	})
}

// ReportFailure marks the record failed and records which stage broke and
// why. Reporting errors are logged and swallowed so they never mask the
// original stage error.
func (r *Reporter) ReportFailure(ctx context.Context, kind domain.OwnerKind, id string, stage string, progress int, cause error) {
	message := fmt.Sprintf("%s failed: %v", stage, cause)
	if err := r.Report(ctx, kind, id, domain.StatusFailed, progress, message); err != nil {
		r.log.WithFields(logger.Fields{
			logger.FieldDocumentID: id,
			logger.FieldStage:      stage,
		}).WithError(err).Error("Failed to record stage failure")
	}
}

// appendCapped appends line to log and, when the result exceeds maxBytes,
// drops whole lines from the front until it fits. A single oversized line
// is kept as-is rather than truncated mid-line.
func appendCapped(log, line string, maxBytes int) string {
	out := log + line
	for len(out) > maxBytes {
		idx := strings.IndexByte(out, '\n')
		if idx < 0 || idx == len(out)-1 {
			break
		}
		out = out[idx+1:]
	}
	return out
}
