package api

import (
	"github.com/gin-gonic/gin"
	"github.com/plentyofmemes/memepipe/internal/api/handler"
	"github.com/plentyofmemes/memepipe/internal/api/middleware"
	"github.com/plentyofmemes/memepipe/internal/config"
	"github.com/plentyofmemes/memepipe/internal/logger"
	"github.com/plentyofmemes/memepipe/internal/repository"
	"github.com/plentyofmemes/memepipe/internal/service"
	"github.com/plentyofmemes/memepipe/internal/source"
)

// RouterDeps bundles the dependencies the router needs.
type RouterDeps struct {
	Feed       *service.FeedService
	Moderation *service.ModerationService
	Ingest     *service.IngestService
	Batches    *repository.BatchRepository
	Sources    map[string]source.Source
	Logger     *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.Config, deps RouterDeps) *gin.Engine {
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
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))
	r.Use(middleware.Actor(cfg.Admin.Token))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	feedHandler := handler.NewFeedHandler(deps.Feed)
	moderationHandler := handler.NewModerationHandler(deps.Moderation)
	ingestHandler := handler.NewIngestHandler(deps.Ingest, deps.Batches, deps.Sources, deps.Logger)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Public feed
		v1.GET("/feed", feedHandler.ListFeed)
		v1.GET("/feed/:id", feedHandler.GetMeme)

		// Moderation and ingestion, admin token required
		admin := v1.Group("/admin", middleware.RequireAdmin())
		{
			admin.GET("/memes", moderationHandler.ListQueue)
			admin.POST("/memes/:id/approve", moderationHandler.Approve)
			admin.POST("/memes/:id/reject", moderationHandler.Reject)
			admin.POST("/memes/:id/unpublish", moderationHandler.Unpublish)
			admin.PATCH("/memes/:id", moderationHandler.Edit)

			admin.POST("/ingest", ingestHandler.TriggerBatch)
			admin.GET("/ingest/status", ingestHandler.GetBatchStatus)
			admin.GET("/batches", ingestHandler.ListBatches)
		}
	}

	return r
}
