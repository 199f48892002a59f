package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/rkovacs/bookworm/internal/domain"
)

// EPUBExtractor handles EPUB archives. Each XHTML content file becomes one
// chapter in reading (archive) order.
type EPUBExtractor struct{}

var (
	epubTitleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	epubHeadingRe = regexp.MustCompile(`(?is)<h[1-3][^>]*>(.*?)</h[1-3]>`)
	epubTagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	epubHeadRe    = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
)

// Extract concatenates the text of every content document and builds the
// normalized chapter list.
func (e *EPUBExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB archive: %w", err)
	}

	var contentFiles []*zip.File
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
			contentFiles = append(contentFiles, f)
		}
	}
	if len(contentFiles) == 0 {
		return nil, errors.New("EPUB has no content documents")
	}
	sort.Slice(contentFiles, func(i, j int) bool { return contentFiles[i].Name < contentFiles[j].Name })

	var sb strings.Builder
	var chapters []domain.Chapter
	for i, f := range contentFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		markup := string(raw)
		title := chapterTitle(markup)
		text := stripMarkup(markup)
		if text == "" {
			continue
		}
		if title == "" {
			title = fmt.Sprintf("Chapter %d", len(chapters)+1)
		}
		chapters = append(chapters, domain.Chapter{Index: i, Title: title})
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, errors.New("EPUB contains no extractable text")
	}

	title := ""
	if len(chapters) > 0 {
		title = chapters[0].Title
	}

	return &Result{
		Text: text,
		Metadata: Metadata{
			WordCount: countWords(text),
			Language:  detectLanguage(text),
			Title:     title,
		},
		Chapters: chapters,
	}, nil
}

// chapterTitle prefers the first heading over the document title, since
// EPUB titles often repeat the book name on every file.
func chapterTitle(markup string) string {
	if m := epubHeadingRe.FindStringSubmatch(markup); m != nil {
		if t := strings.TrimSpace(stripMarkup(m[1])); t != "" {
			return t
		}
	}
	if m := epubTitleRe.FindStringSubmatch(markup); m != nil {
		return strings.TrimSpace(html.UnescapeString(m[1]))
	}
	return ""
}

// stripMarkup removes the head section and all tags, collapsing whitespace.
func stripMarkup(markup string) string {
	markup = epubHeadRe.ReplaceAllString(markup, " ")
	text := epubTagRe.ReplaceAllString(markup, " ")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			out = append(out, strings.Join(fields, " "))
		}
	}
	return strings.Join(out, "\n")
}
