package handler

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rkovacs/bookworm/internal/domain"
	"github.com/rkovacs/bookworm/internal/pipeline"
	"github.com/rkovacs/bookworm/internal/repository"
	"github.com/rkovacs/bookworm/internal/storage"
)

// DocumentHandler handles owning-record endpoints: upload registration,
// record retrieval and processing triggers.
type DocumentHandler struct {
	records *repository.Records
	store   storage.ObjectStorage
	pipe    *pipeline.Pipeline
}

// NewDocumentHandler creates a new document handler.
// Parameters:
//   - records: owning-record facade.
//   - store: object storage for source files.
//   - pipe: processing pipeline for triggers.
// Returns:
//   - *DocumentHandler: initialized handler.
func NewDocumentHandler(records *repository.Records, store storage.ObjectStorage, pipe *pipeline.Pipeline) *DocumentHandler {
	return &DocumentHandler{
		records: records,
		store:   store,
		pipe:    pipe,
	}
}

// Upload handles POST /api/v1/uploads. It stores the source file, creates
// the owning record and, when process=true, queues it for extraction.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "A file upload is required",
		})
		return
	}
	defer file.Close()

	kind, err := domain.ParseOwnerKind(c.DefaultPostForm("kind", string(domain.KindDocument)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	fileType, err := fileTypeFromName(header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	id := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	key := fmt.Sprintf("sources/%s/%s%s", kind, id, ext)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.store.Upload(ctx, key, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store source file: " + err.Error(),
		})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, ext)
	}
	sourceURL := h.store.GetURL(key)

	switch kind {
	case domain.KindBook:
		book := &domain.Book{
			ID:               id,
			Title:            title,
			Author:           c.PostForm("author"),
			FileType:         fileType,
			SourceFileURL:    sourceURL,
			ProcessingStatus: domain.StatusQueued,
		}
		err = h.records.Books().Create(ctx, book)
	default:
		doc := &domain.Document{
			ID:               id,
			Title:            title,
			FileType:         fileType,
			SourceFileURL:    sourceURL,
			ProcessingStatus: domain.StatusQueued,
		}
		err = h.records.Documents().Create(ctx, doc)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create record: " + err.Error(),
		})
		return
	}

	resp := gin.H{
		"id":              id,
		"kind":            kind,
		"title":           title,
		"file_type":       fileType,
		"source_file_url": sourceURL,
	}

	if c.DefaultPostForm("process", "true") == "true" {
		job, err := h.pipe.EnqueueExtraction(ctx, pipeline.TriggerRequest{
			DocumentID: id,
			Kind:       kind,
			Priority:   domain.ParsePriority(c.PostForm("priority")),
			UserID:     c.PostForm("user_id"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Record created but processing could not be queued: " + err.Error(),
			})
			return
		}
		resp["job_id"] = job.ID
	}

	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /api/v1/records/:kind/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	kind, err := domain.ParseOwnerKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	switch kind {
	case domain.KindBook:
		book, err := h.records.Books().GetByID(ctx, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Book not found",
			})
			return
		}
		c.JSON(http.StatusOK, book)
	default:
		doc, err := h.records.Documents().GetByID(ctx, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Document not found",
			})
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// List handles GET /api/v1/records/:kind. It filters by processing status
// with limit/offset pagination.
func (h *DocumentHandler) List(c *gin.Context) {
	kind, err := domain.ParseOwnerKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	status := domain.ProcessingStatus(c.DefaultQuery("status", string(domain.StatusCompleted)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ctx := c.Request.Context()

	switch kind {
	case domain.KindBook:
		books, err := h.records.Books().ListByStatus(ctx, status, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list books: " + err.Error(),
			})
			return
		}
		total, _ := h.records.Books().CountByStatus(ctx, status)
		c.JSON(http.StatusOK, gin.H{"total": total, "results": books})
	default:
		docs, err := h.records.Documents().ListByStatus(ctx, status, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list documents: " + err.Error(),
			})
			return
		}
		total, _ := h.records.Documents().CountByStatus(ctx, status)
		c.JSON(http.StatusOK, gin.H{"total": total, "results": docs})
	}
}

// ProcessRequest is the body of a processing trigger.
type ProcessRequest struct {
	Priority string `json:"priority"`
	UserID   string `json:"user_id"`
}

// Process handles POST /api/v1/records/:kind/:id/process. It queues the
// record for a full pipeline run; failed or completed records are re-run
// from extraction.
func (h *DocumentHandler) Process(c *gin.Context) {
	kind, err := domain.ParseOwnerKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	var req ProcessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body: " + err.Error(),
			})
			return
		}
	}

	job, err := h.pipe.EnqueueExtraction(c.Request.Context(), pipeline.TriggerRequest{
		DocumentID: c.Param("id"),
		Kind:       kind,
		Priority:   domain.ParsePriority(req.Priority),
		UserID:     req.UserID,
		Message:    "Queued for processing",
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Failed to queue processing: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":   job.ID,
		"queue":    job.Queue,
		"priority": job.Priority,
	})
}

// fileTypeFromName maps a filename extension to a supported file type.
func fileTypeFromName(name string) (domain.FileType, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return domain.FileTypePDF, nil
	case ".epub":
		return domain.FileTypeEPUB, nil
	case ".docx":
		return domain.FileTypeDOCX, nil
	case ".txt":
		return domain.FileTypeTXT, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(name))
	}
}
