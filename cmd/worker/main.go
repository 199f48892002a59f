package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rkovacs/bookworm/internal/ai"
	"github.com/rkovacs/bookworm/internal/config"
	"github.com/rkovacs/bookworm/internal/extract"
	"github.com/rkovacs/bookworm/internal/logger"
	"github.com/rkovacs/bookworm/internal/pipeline"
	"github.com/rkovacs/bookworm/internal/repository"
	"github.com/rkovacs/bookworm/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "bookworm-worker",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	records := repository.NewRecords(db)

	// Initialize storage
	objectStorage, err := storage.NewS3Storage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Initialize AI client
	aiClient := ai.NewOpenAIClient(&ai.OpenAIConfig{
		Model:   cfg.AI.Model,
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
	})

	// Initialize pipeline with stage workers
	fetcher := storage.NewObjectFetcher(objectStorage, cfg.Storage.Bucket)
	pipe, err := pipeline.New(db, records, extract.NewRegistry(), fetcher, aiClient, cfg.Queue, cfg.Pipeline, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize pipeline")
	}

	// Run workers until interrupted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipe.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down workers...")
	cancel()
	pipe.Stop()
	appLogger.Info("Workers exited")
}
