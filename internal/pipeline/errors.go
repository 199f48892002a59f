package pipeline

import (
	"errors"
	"fmt"

	"github.com/rkovacs/bookworm/internal/domain"
)

// ErrEmptyExtraction is returned when an extractor reports success but
// produced empty or whitespace-only text. The stage treats it like any
// extractor failure so the queue's retry policy applies.
var ErrEmptyExtraction = errors.New("extraction produced empty text")

// ErrMissingText is returned by downstream stages when the owning record
// has no extracted text to work with.
var ErrMissingText = errors.New("owning record has no extracted text")

// ExtractionError wraps a per-format extractor failure with the file type
// for log attribution.
type ExtractionError struct {
	FileType domain.FileType
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s file: %v", e.FileType, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
