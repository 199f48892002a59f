package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkovacs/bookworm/internal/domain"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	for _, ft := range []domain.FileType{domain.FileTypePDF, domain.FileTypeEPUB, domain.FileTypeDOCX, domain.FileTypeTXT} {
		e, err := r.For(ft)
		require.NoError(t, err)
		assert.NotNil(t, e)
	}

	_, err := r.For(domain.FileType("mobi"))
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, domain.FileType("mobi"), unsupported.FileType)
}

func TestTXTExtractor(t *testing.T) {
	e := &TXTExtractor{}
	ctx := context.Background()

	t.Run("plain text", func(t *testing.T) {
		res, err := e.Extract(ctx, []byte("A Study of Words\n\nThe quick brown fox jumps over the lazy dog and it was good for the fox.\n"))
		require.NoError(t, err)

		assert.Equal(t, "A Study of Words", res.Metadata.Title)
		assert.Equal(t, "en", res.Metadata.Language)
		assert.Equal(t, 20, res.Metadata.WordCount)
		assert.True(t, strings.HasPrefix(res.Text, "A Study of Words"))
		assert.Empty(t, res.Chapters)
	})

	t.Run("normalizes CRLF", func(t *testing.T) {
		res, err := e.Extract(ctx, []byte("line one\r\nline two\r\n"))
		require.NoError(t, err)
		assert.Equal(t, "line one\nline two", res.Text)
	})

	t.Run("rejects invalid UTF-8", func(t *testing.T) {
		_, err := e.Extract(ctx, []byte{0xff, 0xfe, 0xfd})
		assert.Error(t, err)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := e.Extract(ctx, []byte("   \n\t  "))
		assert.Error(t, err)
	})
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCXExtractor(t *testing.T) {
	e := &DOCXExtractor{}
	ctx := context.Background()

	documentXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Annual Report</w:t></w:r></w:p>
    <w:p><w:r><w:t>The company grew steadily </w:t></w:r><w:r><w:t>throughout the year.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	t.Run("extracts paragraphs", func(t *testing.T) {
		data := buildZip(t, map[string]string{"word/document.xml": documentXML})
		res, err := e.Extract(ctx, data)
		require.NoError(t, err)

		assert.Equal(t, "Annual Report", res.Metadata.Title)
		assert.Contains(t, res.Text, "Annual Report\n")
		assert.Contains(t, res.Text, "The company grew steadily throughout the year.")
	})

	t.Run("missing document body", func(t *testing.T) {
		data := buildZip(t, map[string]string{"word/other.xml": "<x/>"})
		_, err := e.Extract(ctx, data)
		assert.Error(t, err)
	})

	t.Run("not a zip archive", func(t *testing.T) {
		_, err := e.Extract(ctx, []byte("plain text, not a zip"))
		assert.Error(t, err)
	})
}

func TestEPUBExtractor(t *testing.T) {
	e := &EPUBExtractor{}
	ctx := context.Background()

	data := buildZip(t, map[string]string{
		"mimetype": "application/epub+zip",
		"OEBPS/ch01.xhtml": `<html><head><title>The Novel</title></head>
<body><h1>The Beginning</h1><p>It was the best of times, it was the worst of times.</p></body></html>`,
		"OEBPS/ch02.xhtml": `<html><head><title>The Novel</title></head>
<body><h1>The Middle</h1><p>Much happened in the middle of the story.</p></body></html>`,
	})

	res, err := e.Extract(ctx, data)
	require.NoError(t, err)

	require.Len(t, res.Chapters, 2)
	assert.Equal(t, "The Beginning", res.Chapters[0].Title)
	assert.Equal(t, "The Middle", res.Chapters[1].Title)
	assert.Equal(t, "The Beginning", res.Metadata.Title)
	assert.Contains(t, res.Text, "best of times")
	assert.Contains(t, res.Text, "middle of the story")
	assert.NotContains(t, res.Text, "<p>")
	assert.NotContains(t, res.Text, "The Novel", "head content is stripped")

	t.Run("no content documents", func(t *testing.T) {
		data := buildZip(t, map[string]string{"mimetype": "application/epub+zip"})
		_, err := e.Extract(ctx, data)
		assert.Error(t, err)
	})
}

func TestDetectLanguage(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want string
	}{
		{
			name: "english",
			text: "The cat sat on the mat and it was happy with the sun that shone for them.",
			want: "en",
		},
		{
			name: "french",
			text: "Le chat est dans la maison et il ne veut pas sortir dans le jardin pour les oiseaux.",
			want: "fr",
		},
		{
			name: "spanish",
			text: "El perro corre por el parque y una gata lo mira desde la ventana de la casa con interés.",
			want: "es",
		},
		{
			name: "german",
			text: "Der Hund läuft durch den Park und die Katze sitzt auf der Mauer mit einem Blick auf den Garten.",
			want: "de",
		},
		{
			name: "empty falls back to english",
			text: "",
			want: "en",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detectLanguage(tc.text))
		})
	}
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, countWords(""))
	assert.Equal(t, 0, countWords("   \n\t"))
	assert.Equal(t, 4, countWords("one two\nthree\tfour"))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Title", firstLine("\n\n  Title  \nbody"))
	assert.Equal(t, "", firstLine("   \n  "))
}
