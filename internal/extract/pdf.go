package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF files via the ledongthuc/pdf reader.
type PDFExtractor struct{}

// Extract walks every page and concatenates its plain text. Pages that fail
// to decode are skipped rather than failing the whole document.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	total := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, errors.New("PDF contains no extractable text")
	}

	title := ""
	if outline := reader.Outline(); len(outline.Child) > 0 {
		title = outline.Child[0].Title
	}
	if title == "" {
		title = firstLine(text)
	}

	return &Result{
		Text: text,
		Metadata: Metadata{
			WordCount: countWords(text),
			Language:  detectLanguage(text),
			Title:     title,
			PageCount: total,
		},
	}, nil
}
