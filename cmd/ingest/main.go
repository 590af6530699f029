package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

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
		ServiceName: "memepipe-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	sourceID := flag.String("source", "reddit", "Data source to pull candidates from")
	limit := flag.Int("limit", 0, "Maximum number of candidates for this run (0 uses configured batch size)")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldSource: *sourceID,
		logger.FieldCount:  *limit,
	}).Info("Starting batch run")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	memeRepo := repository.NewMemeRepository(db)
	batchRepo := repository.NewBatchRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Initialize data sources
	sources := map[string]source.Source{
		"reddit": reddit.NewAdapter(&reddit.Config{
			Subreddits: cfg.Reddit.Subreddits,
			UserAgent:  cfg.Reddit.UserAgent,
			PostsPer:   cfg.Reddit.PostsPer,
		}),
	}

	src, ok := sources[*sourceID]
	if !ok {
		appLogger.WithField(logger.FieldSource, *sourceID).Fatal("Unknown source")
	}

	// Cancel the run on SIGINT/SIGTERM; already-staged records stay intact
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		appLogger.Info("Received shutdown signal, cancelling batch run")
		cancel()
	}()

	stats, err := ingestService.RunBatch(ctx, src, *limit)
	if err != nil {
		appLogger.WithError(err).Fatal("Batch run failed")
	}

	appLogger.WithFields(logger.Fields{
		"total":      stats.TotalItems,
		"staged":     stats.StagedItems,
		"dropped":    stats.DroppedItems,
		"failed":     stats.FailedItems,
		"duplicates": stats.Duplicates,
	}).Info("Batch run completed")
}
