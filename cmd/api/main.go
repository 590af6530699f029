package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plentyofmemes/memepipe/internal/api"
	"github.com/plentyofmemes/memepipe/internal/config"
	"github.com/plentyofmemes/memepipe/internal/logger"
	"github.com/plentyofmemes/memepipe/internal/repository"
	"github.com/plentyofmemes/memepipe/internal/service"
	"github.com/plentyofmemes/memepipe/internal/source"
	"github.com/plentyofmemes/memepipe/internal/source/reddit"
	"github.com/plentyofmemes/memepipe/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "memepipe-api",
	})
	logger.SetDefaultLogger(appLogger)

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	memeRepo := repository.NewMemeRepository(db)
	batchRepo := repository.NewBatchRepository(db)

	ctx := context.Background()

	// Optional archive of staged image bytes
	var archive storage.ObjectStorage
	if cfg.Archive.Enabled {
		s3Store, err := storage.NewS3Storage(&storage.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
			PublicURL: cfg.Archive.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize archive storage")
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure archive bucket")
		}
		archive = s3Store
	}

	// Initialize services
	fetcher := service.NewFetchService(&service.FetchConfig{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		Retries:   cfg.Fetch.Retries,
		Backoff:   cfg.Fetch.Backoff,
		UserAgent: cfg.Fetch.UserAgent,
	})

	classifier := service.NewClassifierService(&service.ClassifierConfig{
		BaseURL: cfg.Classifier.BaseURL,
		APIKey:  cfg.Classifier.APIKey,
		Model:   cfg.Classifier.Model,
		Timeout: cfg.Classifier.Timeout,
	})

	ingestService := service.NewIngestService(
		memeRepo,
		batchRepo,
		fetcher,
		classifier,
		archive,
		appLogger,
		&service.IngestConfig{
			Workers:          cfg.Ingest.Workers,
			BatchSize:        cfg.Ingest.BatchSize,
			NSFWThreshold:    cfg.Ingest.NSFWThreshold,
			HammingThreshold: cfg.Dedup.HammingThreshold,
		},
	)

	moderationService := service.NewModerationService(memeRepo, appLogger)
	feedService := service.NewFeedService(memeRepo, cfg.Feed.PageSize)

	// Initialize data sources
	sources := map[string]source.Source{
		"reddit": reddit.NewAdapter(&reddit.Config{
			Subreddits: cfg.Reddit.Subreddits,
			UserAgent:  cfg.Reddit.UserAgent,
			PostsPer:   cfg.Reddit.PostsPer,
		}),
	}

	// Setup router
	router := api.SetupRouter(cfg, api.RouterDeps{
		Feed:       feedService,
		Moderation: moderationService,
		Ingest:     ingestService,
		Batches:    batchRepo,
		Sources:    sources,
		Logger:     appLogger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
