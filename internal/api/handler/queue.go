package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rkovacs/bookworm/internal/pipeline"
)

// QueueHandler exposes queue inspection and maintenance endpoints.
type QueueHandler struct {
	pipe *pipeline.Pipeline
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(pipe *pipeline.Pipeline) *QueueHandler {
	return &QueueHandler{pipe: pipe}
}

// Stats handles GET /api/v1/queues/stats. It returns per-queue job counts
// by state.
func (h *QueueHandler) Stats(c *gin.Context) {
	stats, err := h.pipe.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to collect queue stats: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"queues": stats,
	})
}

// Clean handles POST /api/v1/queues/clean. It purges every job record from
// every stage queue regardless of state. Irreversible.
func (h *QueueHandler) Clean(c *gin.Context) {
	if err := h.pipe.Clean(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clean queues: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "cleaned",
	})
}
