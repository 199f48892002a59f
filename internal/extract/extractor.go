// Package extract provides the per-format text extractors the pipeline's
// extraction stage dispatches to. Each extractor turns raw file bytes into
// plain text plus structural metadata.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rkovacs/bookworm/internal/domain"
)

// Metadata describes the extracted document.
type Metadata struct {
	WordCount int    `json:"word_count"`
	Language  string `json:"language"`
	Title     string `json:"title"`
	PageCount int    `json:"page_count,omitempty"`
}

// Result is the output of a successful extraction.
type Result struct {
	Text     string           `json:"text"`
	Metadata Metadata         `json:"metadata"`
	Chapters []domain.Chapter `json:"chapters,omitempty"`
}

// Extractor converts one file format into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Result, error)
}

// UnsupportedTypeError is returned when no extractor is registered for a
// file type.
type UnsupportedTypeError struct {
	FileType domain.FileType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.FileType)
}

// Registry holds the closed set of in-process extractors keyed by file type.
type Registry struct {
	extractors map[domain.FileType]Extractor
}

// NewRegistry creates a registry with the built-in pdf/epub/docx/txt extractors.
func NewRegistry() *Registry {
	return &Registry{
		extractors: map[domain.FileType]Extractor{
			domain.FileTypePDF:  &PDFExtractor{},
			domain.FileTypeEPUB: &EPUBExtractor{},
			domain.FileTypeDOCX: &DOCXExtractor{},
			domain.FileTypeTXT:  &TXTExtractor{},
		},
	}
}

// Register replaces or adds the extractor for a file type. Tests use this to
// install fakes.
func (r *Registry) Register(ft domain.FileType, e Extractor) {
	r.extractors[ft] = e
}

// For returns the extractor for the given file type.
func (r *Registry) For(ft domain.FileType) (Extractor, error) {
	e, ok := r.extractors[ft]
	if !ok {
		return nil, &UnsupportedTypeError{FileType: ft}
	}
	return e, nil
}

// countWords counts whitespace-separated tokens.
func countWords(text string) int {
	return len(strings.Fields(text))
}

// firstLine returns the first non-empty line, trimmed, as a title fallback.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
