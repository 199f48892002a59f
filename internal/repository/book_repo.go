package repository

import (
	"context"

	"github.com/rkovacs/bookworm/internal/domain"
	"gorm.io/gorm"
)

// BookRepository handles book data operations.
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new BookRepository.
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// Create inserts a new book record.
func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID retrieves a book by its ID.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	var book domain.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateFields applies a partial update to a book record. Only the columns
// named in fields are written; unrelated columns keep their current values.
func (r *BookRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Book{}).Where("id = ?", id).Updates(fields).Error
}

// ListByStatus retrieves books by processing status with pagination.
func (r *BookRepository) ListByStatus(ctx context.Context, status domain.ProcessingStatus, limit, offset int) ([]domain.Book, error) {
	var books []domain.Book
	if err := r.db.WithContext(ctx).
		Where("processing_status = ?", status).
		Limit(limit).
		Offset(offset).
		Order("created_at DESC").
		Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// CountByStatus counts books by processing status.
func (r *BookRepository) CountByStatus(ctx context.Context, status domain.ProcessingStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Book{}).Where("processing_status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
