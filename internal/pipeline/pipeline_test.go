package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rkovacs/bookworm/internal/ai"
	"github.com/rkovacs/bookworm/internal/ai/mock"
	"github.com/rkovacs/bookworm/internal/config"
	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/extract"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/repository"
)

// mapFetcher serves source files from memory.
type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	data, ok := m[ref]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", ref)
	}
	return data, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "pipeline.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	return db
}

func fastQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		DefaultAttempts: 2,
		BackoffBase:     10 * time.Millisecond,
		JobTimeout:      5 * time.Second,
		PollInterval:    10 * time.Millisecond,
	}
}

func fastPipelineConfig() config.PipelineConfig {
	stage := config.StageConfig{Concurrency: 1}
	return config.PipelineConfig{
		Extraction: stage,
		Linguistic: stage,
		Enrichment: stage,
		Validation: stage,
	}
}

func newTestPipeline(t *testing.T, db *gorm.DB, fetcher mapFetcher, client ai.Client) (*Pipeline, *repository.Records) {
	t.Helper()
	records := repository.NewRecords(db)
	log := logger.New(&logger.Config{Level: "error", ServiceName: "test"})
	pipe, err := New(db, records, extract.NewRegistry(), fetcher, client, fastQueueConfig(), fastPipelineConfig(), log)
	require.NoError(t, err)
	return pipe, records
}

// sampleText is long enough to pass the minimum-length validation rule.
func sampleText() string {
	var b strings.Builder
	b.WriteString("The History of Computing\n\n")
	for i := 0; i < 30; i++ {
		b.WriteString("Charles Babbage designed a wonderful machine that inspired generations of brilliant engineers. ")
		b.WriteString("The excellent ideas behind modern computing spread from London to the whole world. ")
	}
	return b.String()
}

func createBook(t *testing.T, records *repository.Records, sourceURL string) *domain.Book {
	t.Helper()
	book := &domain.Book{
		ID:            uuid.New().String(),
		Title:         "The History of Computing",
		FileType:      domain.FileTypeTXT,
		SourceFileURL: sourceURL,
	}
	require.NoError(t, records.Books().Create(context.Background(), book))
	return book
}

func waitForRecord(t *testing.T, records *repository.Records, kind domain.OwnerKind, id string, cond func(*repository.Record) bool) *repository.Record {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := records.FindByID(context.Background(), kind, id)
		require.NoError(t, err)
		if cond(rec) {
			return rec
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("record did not reach expected state before deadline")
	return nil
}

func TestPipelineProcessesBookEndToEnd(t *testing.T) {
	db := newTestDB(t)
	fetcher := mapFetcher{"sources/book/input.txt": []byte(sampleText())}
	client := mock.NewClient()
	pipe, records := newTestPipeline(t, db, fetcher, client)

	book := createBook(t, records, "sources/book/input.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipe.Start(ctx)
	defer pipe.Stop()

	job, err := pipe.EnqueueExtraction(ctx, TriggerRequest{
		DocumentID: book.ID,
		Kind:       domain.KindBook,
		Priority:   domain.PriorityNormal,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.QueueExtraction, job.Queue)

	rec := waitForRecord(t, records, domain.KindBook, book.ID, func(r *repository.Record) bool {
		return r.ProcessingCompleted
	})

	assert.Equal(t, domain.StatusCompleted, rec.ProcessingStatus)
	assert.NotEmpty(t, rec.ExtractedText)
	assert.Greater(t, rec.WordCount, 100)
	assert.Equal(t, "en", rec.Language)
	assert.NotEmpty(t, rec.Keywords)
	assert.NotEmpty(t, rec.AutoSummary)
	assert.Equal(t, "A concise study summary of the document.", rec.AISummary)
	assert.NotEmpty(t, rec.QuizQuestions)
	require.NotNil(t, rec.ValidationScore)
	// The keywords-present rule can race the linguistic stage; everything
	// else must pass with a full mock result.
	assert.GreaterOrEqual(t, *rec.ValidationScore, 90)

	assert.Contains(t, rec.ProcessingLog, "Starting text extraction")
	assert.Contains(t, rec.ProcessingLog, "Processing completed")

	stored, err := records.Books().GetByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, "intermediate", stored.Difficulty)
	assert.NotEmpty(t, stored.Concepts)
	assert.NotEmpty(t, stored.Sentiment)
}

func TestPipelineMarksRecordFailedWhenSourceMissing(t *testing.T) {
	db := newTestDB(t)
	client := mock.NewClient()
	pipe, records := newTestPipeline(t, db, mapFetcher{}, client)

	book := createBook(t, records, "sources/book/missing.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipe.Start(ctx)
	defer pipe.Stop()

	_, err := pipe.EnqueueExtraction(ctx, TriggerRequest{
		DocumentID: book.ID,
		Kind:       domain.KindBook,
	})
	require.NoError(t, err)

	rec := waitForRecord(t, records, domain.KindBook, book.ID, func(r *repository.Record) bool {
		return r.ProcessingStatus == domain.StatusFailed
	})
	assert.Contains(t, rec.ProcessingLog, "extraction failed")
	assert.Contains(t, rec.ProcessingLog, "missing.txt")
	assert.False(t, rec.ProcessingCompleted)

	// The mock must never have been reached: extraction failed, so no
	// enrichment job was fanned out.
	assert.Equal(t, 0, client.Calls())
}

func TestEnrichmentFailureDoesNotEraseLinguisticResults(t *testing.T) {
	db := newTestDB(t)
	fetcher := mapFetcher{"sources/document/input.txt": []byte(sampleText())}
	client := mock.NewClient()
	client.Err = errors.New("model unavailable")
	pipe, records := newTestPipeline(t, db, fetcher, client)

	doc := &domain.Document{
		ID:            uuid.New().String(),
		Title:         "Notes",
		FileType:      domain.FileTypeTXT,
		SourceFileURL: "sources/document/input.txt",
	}
	require.NoError(t, records.Documents().Create(context.Background(), doc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipe.Start(ctx)
	defer pipe.Stop()

	_, err := pipe.EnqueueExtraction(ctx, TriggerRequest{
		DocumentID: doc.ID,
		Kind:       domain.KindDocument,
	})
	require.NoError(t, err)

	rec := waitForRecord(t, records, domain.KindDocument, doc.ID, func(r *repository.Record) bool {
		return strings.Contains(r.ProcessingLog, "ai-enrichment failed") &&
			len(r.Keywords) > 0
	})

	// The linguistic sibling ran independently of the enrichment failure.
	assert.NotEmpty(t, rec.ExtractedText)
	assert.NotEmpty(t, rec.Keywords)
	assert.Empty(t, rec.AISummary)
	assert.False(t, rec.ProcessingCompleted)

	// Both configured attempts hit the AI backend.
	waitFor := time.Now().Add(5 * time.Second)
	for time.Now().Before(waitFor) && client.Calls() < 2 {
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, 2, client.Calls())
}

func TestEnqueueExtractionUnknownRecord(t *testing.T) {
	db := newTestDB(t)
	pipe, _ := newTestPipeline(t, db, mapFetcher{}, mock.NewClient())

	_, err := pipe.EnqueueExtraction(context.Background(), TriggerRequest{
		DocumentID: "does-not-exist",
		Kind:       domain.KindBook,
	})
	assert.Error(t, err)
}

func TestStatsCoversAllStageQueues(t *testing.T) {
	db := newTestDB(t)
	fetcher := mapFetcher{"sources/book/input.txt": []byte(sampleText())}
	pipe, records := newTestPipeline(t, db, fetcher, mock.NewClient())

	book := createBook(t, records, "sources/book/input.txt")
	_, err := pipe.EnqueueExtraction(context.Background(), TriggerRequest{
		DocumentID: book.ID,
		Kind:       domain.KindBook,
	})
	require.NoError(t, err)

	stats, err := pipe.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 4)
	assert.Equal(t, int64(1), stats[domain.QueueExtraction].Waiting)
	assert.Equal(t, int64(0), stats[domain.QueueLinguistic].Waiting)
}

func TestChaptersWrittenOnlyForBooks(t *testing.T) {
	db := newTestDB(t)
	records := repository.NewRecords(db)
	log := logger.New(&logger.Config{Level: "error", ServiceName: "test"})

	// A registry whose txt extractor reports chapters, to exercise the
	// kind dispatch.
	registry := extract.NewRegistry()
	registry.Register(domain.FileTypeTXT, chapteredExtractor{})

	fetcher := mapFetcher{
		"sources/book/b.txt":     []byte(sampleText()),
		"sources/document/d.txt": []byte(sampleText()),
	}
	pipe, err := New(db, records, registry, fetcher, mock.NewClient(), fastQueueConfig(), fastPipelineConfig(), log)
	require.NoError(t, err)

	book := createBook(t, records, "sources/book/b.txt")
	doc := &domain.Document{
		ID:            uuid.New().String(),
		FileType:      domain.FileTypeTXT,
		SourceFileURL: "sources/document/d.txt",
	}
	require.NoError(t, records.Documents().Create(context.Background(), doc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipe.Start(ctx)
	defer pipe.Stop()

	for _, req := range []TriggerRequest{
		{DocumentID: book.ID, Kind: domain.KindBook},
		{DocumentID: doc.ID, Kind: domain.KindDocument},
	} {
		_, err := pipe.EnqueueExtraction(ctx, req)
		require.NoError(t, err)
	}

	waitForRecord(t, records, domain.KindBook, book.ID, func(r *repository.Record) bool {
		return r.ProcessingCompleted
	})
	waitForRecord(t, records, domain.KindDocument, doc.ID, func(r *repository.Record) bool {
		return r.ProcessingCompleted
	})

	stored, err := records.Books().GetByID(context.Background(), book.ID)
	require.NoError(t, err)
	require.Len(t, stored.Chapters, 2)
	assert.Equal(t, "Chapter One", stored.Chapters[0].Title)
}

// chapteredExtractor wraps plain text extraction with a fixed chapter list.
type chapteredExtractor struct{}

func (chapteredExtractor) Extract(ctx context.Context, data []byte) (*extract.Result, error) {
	text := string(data)
	return &extract.Result{
		Text: text,
		Metadata: extract.Metadata{
			WordCount: len(strings.Fields(text)),
			Language:  "en",
		},
		Chapters: []domain.Chapter{
			{Index: 0, Title: "Chapter One"},
			{Index: 1, Title: "Chapter Two"},
		},
	}, nil
}
