package extract

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// TXTExtractor handles plain-text files.
type TXTExtractor struct{}

// Extract validates the bytes are text and derives metadata. The first
// non-empty line doubles as the title.
func (e *TXTExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("file is not valid UTF-8 text")
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.New("file contains no text")
	}

	return &Result{
		Text: trimmed,
		Metadata: Metadata{
			WordCount: countWords(trimmed),
			Language:  detectLanguage(trimmed),
			Title:     firstLine(trimmed),
		},
	}, nil
}
