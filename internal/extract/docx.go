package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DOCXExtractor handles Office Open XML word documents. A .docx file is a
// zip archive; the body text lives in word/document.xml.
type DOCXExtractor struct{}

// Extract reads word/document.xml and flattens it to plain text, one line
// per paragraph.
func (e *DOCXExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX archive: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, errors.New("DOCX archive has no word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}
	defer rc.Close()

	text, err := flattenDocumentXML(rc)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.New("DOCX contains no extractable text")
	}

	return &Result{
		Text: text,
		Metadata: Metadata{
			WordCount: countWords(text),
			Language:  detectLanguage(text),
			Title:     firstLine(text),
		},
	}, nil
}

// flattenDocumentXML walks the WordprocessingML token stream, collecting the
// character data of w:t runs and terminating lines at paragraph ends.
func flattenDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
