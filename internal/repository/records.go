package repository

import (
	"context"
	"fmt"

	"github.com/rkovacs/bookworm/internal/domain"
	"gorm.io/gorm"
)

// Record is the kind-independent projection of an owning record that the
// pipeline reads. Writes go through UpdateFields with explicit column maps,
// so this view only needs the fields stage workers read back.
type Record struct {
	ID                  string
	Kind                domain.OwnerKind
	Title               string
	FileType            domain.FileType
	SourceFileURL       string
	ExtractedText       string
	Language            string
	WordCount           int
	Keywords            domain.StringArray
	AutoSummary         string
	AISummary           string
	QuizQuestions       domain.QuestionList
	ProcessingStatus    domain.ProcessingStatus
	ProcessingLog       string
	ProcessingCompleted bool
	ValidationScore     *int
}

// ownerStrategy is the closed set of per-kind write behaviors. Books are the
// only kind with a chapters column; a chapters write for any other kind is
// silently dropped by the caller checking HasChapters.
type ownerStrategy struct {
	newModel    func() interface{}
	hasChapters bool
}

var ownerStrategies = map[domain.OwnerKind]ownerStrategy{
	domain.KindBook:     {newModel: func() interface{} { return &domain.Book{} }, hasChapters: true},
	domain.KindDocument: {newModel: func() interface{} { return &domain.Document{} }, hasChapters: false},
}

// Records is the kind-dispatching facade over the two owning record
// repositories. Stage workers only ever talk to this type.
type Records struct {
	db        *gorm.DB
	books     *BookRepository
	documents *DocumentRepository
}

// NewRecords creates the facade with repositories for both owning kinds.
func NewRecords(db *gorm.DB) *Records {
	return &Records{
		db:        db,
		books:     NewBookRepository(db),
		documents: NewDocumentRepository(db),
	}
}

// Books returns the underlying book repository.
func (r *Records) Books() *BookRepository {
	return r.books
}

// Documents returns the underlying document repository.
func (r *Records) Documents() *DocumentRepository {
	return r.documents
}

// HasChapters reports whether the given kind exposes a structured chapters field.
func (r *Records) HasChapters(kind domain.OwnerKind) bool {
	return ownerStrategies[kind].hasChapters
}

// FindByID retrieves the owning record of the given kind as a common view.
func (r *Records) FindByID(ctx context.Context, kind domain.OwnerKind, id string) (*Record, error) {
	switch kind {
	case domain.KindBook:
		book, err := r.books.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Record{
			ID:                  book.ID,
			Kind:                domain.KindBook,
			Title:               book.Title,
			FileType:            book.FileType,
			SourceFileURL:       book.SourceFileURL,
			ExtractedText:       book.ExtractedText,
			Language:            book.Language,
			WordCount:           book.WordCount,
			Keywords:            book.Keywords,
			AutoSummary:         book.AutoSummary,
			AISummary:           book.AISummary,
			QuizQuestions:       book.QuizQuestions,
			ProcessingStatus:    book.ProcessingStatus,
			ProcessingLog:       book.ProcessingLog,
			ProcessingCompleted: book.ProcessingCompleted,
			ValidationScore:     book.ValidationScore,
		}, nil
	case domain.KindDocument:
		doc, err := r.documents.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Record{
			ID:                  doc.ID,
			Kind:                domain.KindDocument,
			Title:               doc.Title,
			FileType:            doc.FileType,
			SourceFileURL:       doc.SourceFileURL,
			ExtractedText:       doc.ExtractedText,
			Language:            doc.Language,
			WordCount:           doc.WordCount,
			Keywords:            doc.Keywords,
			AutoSummary:         doc.AutoSummary,
			AISummary:           doc.AISummary,
			QuizQuestions:       doc.QuizQuestions,
			ProcessingStatus:    doc.ProcessingStatus,
			ProcessingLog:       doc.ProcessingLog,
			ProcessingCompleted: doc.ProcessingCompleted,
			ValidationScore:     doc.ValidationScore,
		}, nil
	default:
		return nil, fmt.Errorf("unknown owner kind: %q", kind)
	}
}

// UpdateFields applies a partial update to the owning record of the given
// kind. Stages write disjoint column sets; there is no optimistic-concurrency
// check, so concurrent writers are last-writer-wins per column.
func (r *Records) UpdateFields(ctx context.Context, kind domain.OwnerKind, id string, fields map[string]interface{}) error {
	strat, ok := ownerStrategies[kind]
	if !ok {
		return fmt.Errorf("unknown owner kind: %q", kind)
	}
	return r.db.WithContext(ctx).Model(strat.newModel()).Where("id = ?", id).Updates(fields).Error
}
