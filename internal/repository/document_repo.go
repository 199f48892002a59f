package repository

import (
	"context"

	"github.com/rkovacs/bookworm/internal/domain"
	"gorm.io/gorm"
)

// DocumentRepository handles document data operations.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID retrieves a document by its ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateFields applies a partial update to a document record. Only the
// columns named in fields are written.
func (r *DocumentRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Document{}).Where("id = ?", id).Updates(fields).Error
}

// ListByStatus retrieves documents by processing status with pagination.
func (r *DocumentRepository) ListByStatus(ctx context.Context, status domain.ProcessingStatus, limit, offset int) ([]domain.Document, error) {
	var docs []domain.Document
	if err := r.db.WithContext(ctx).
		Where("processing_status = ?", status).
		Limit(limit).
		Offset(offset).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// CountByStatus counts documents by processing status.
func (r *DocumentRepository) CountByStatus(ctx context.Context, status domain.ProcessingStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Document{}).Where("processing_status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
