package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rkovacs/bookworm/internal/api/handler"
	"github.com/rkovacs/bookworm/internal/api/middleware"
	"github.com/rkovacs/bookworm/internal/config"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/pipeline"
	"github.com/rkovacs/bookworm/internal/repository"
	"github.com/rkovacs/bookworm/internal/storage"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	records *repository.Records,
	store storage.ObjectStorage,
	pipe *pipeline.Pipeline,
	log *logger.Logger,
	cfg *config.Config,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	documentHandler := handler.NewDocumentHandler(records, store, pipe)
	queueHandler := handler.NewQueueHandler(pipe)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Upload registration
		v1.POST("/uploads", documentHandler.Upload)

		// Owning records
		v1.GET("/records/:kind", documentHandler.List)
		v1.GET("/records/:kind/:id", documentHandler.Get)
		v1.POST("/records/:kind/:id/process", documentHandler.Process)

		// Queues
		v1.GET("/queues/stats", queueHandler.Stats)
		v1.POST("/queues/clean", queueHandler.Clean)
	}

	return r
}
