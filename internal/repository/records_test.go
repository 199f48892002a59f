package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rkovacs/bookworm/internal/domain"
)

func newTestRecords(t *testing.T) *Records {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "records.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewRecords(db)
}

func TestHasChapters(t *testing.T) {
	records := newTestRecords(t)

	assert.True(t, records.HasChapters(domain.KindBook))
	assert.False(t, records.HasChapters(domain.KindDocument))
	assert.False(t, records.HasChapters(domain.OwnerKind("unknown")))
}

func TestFindByIDDispatchesOnKind(t *testing.T) {
	records := newTestRecords(t)
	ctx := context.Background()

	book := &domain.Book{ID: uuid.New().String(), Title: "A Book", FileType: domain.FileTypeEPUB}
	require.NoError(t, records.Books().Create(ctx, book))
	doc := &domain.Document{ID: uuid.New().String(), Title: "A Document", FileType: domain.FileTypeTXT}
	require.NoError(t, records.Documents().Create(ctx, doc))

	got, err := records.FindByID(ctx, domain.KindBook, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "A Book", got.Title)
	assert.Equal(t, domain.KindBook, got.Kind)

	got, err = records.FindByID(ctx, domain.KindDocument, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "A Document", got.Title)
	assert.Equal(t, domain.KindDocument, got.Kind)

	_, err = records.FindByID(ctx, domain.KindBook, doc.ID)
	assert.Error(t, err, "a document id is not found under the book kind")

	_, err = records.FindByID(ctx, domain.OwnerKind("unknown"), book.ID)
	assert.Error(t, err)
}

func TestUpdateFieldsIsPartial(t *testing.T) {
	records := newTestRecords(t)
	ctx := context.Background()

	book := &domain.Book{
		ID:       uuid.New().String(),
		Title:    "Original Title",
		FileType: domain.FileTypePDF,
		Language: "en",
	}
	require.NoError(t, records.Books().Create(ctx, book))

	err := records.UpdateFields(ctx, domain.KindBook, book.ID, map[string]interface{}{
		"extracted_text": "hello world",
		"word_count":     2,
		"keywords":       domain.StringArray{"hello"},
	})
	require.NoError(t, err)

	stored, err := records.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", stored.ExtractedText)
	assert.Equal(t, 2, stored.WordCount)
	assert.Equal(t, domain.StringArray{"hello"}, stored.Keywords)
	// Untouched columns keep their values.
	assert.Equal(t, "Original Title", stored.Title)
	assert.Equal(t, "en", stored.Language)
}

func TestUpdateFieldsUnknownKind(t *testing.T) {
	records := newTestRecords(t)

	err := records.UpdateFields(context.Background(), domain.OwnerKind("unknown"), "id", map[string]interface{}{"title": "x"})
	assert.Error(t, err)
}

func TestListAndCountByStatus(t *testing.T) {
	records := newTestRecords(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		doc := &domain.Document{ID: uuid.New().String(), ProcessingStatus: domain.StatusCompleted}
		require.NoError(t, records.Documents().Create(ctx, doc))
	}
	failed := &domain.Document{ID: uuid.New().String(), ProcessingStatus: domain.StatusFailed}
	require.NoError(t, records.Documents().Create(ctx, failed))

	docs, err := records.Documents().ListByStatus(ctx, domain.StatusCompleted, 10, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	count, err := records.Documents().CountByStatus(ctx, domain.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	docs, err = records.Documents().ListByStatus(ctx, domain.StatusCompleted, 2, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
