package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plentyofmemes/memepipe/internal/logger"
	"github.com/plentyofmemes/memepipe/internal/repository"
	"github.com/plentyofmemes/memepipe/internal/service"
	"github.com/plentyofmemes/memepipe/internal/source"
)

// IngestHandler handles administrator batch ingestion endpoints.
type IngestHandler struct {
	ingest  *service.IngestService
	batches *repository.BatchRepository
	sources map[string]source.Source
	logger  *logger.Logger

	// Batch run state
	mu            sync.RWMutex
	isRunning     bool
	lastStats     *BatchStatsResponse
	lastRunTime   time.Time
	lastRunStatus string
}

// NewIngestHandler creates a new ingest handler.
// Parameters:
//   - ingest: ingest service instance.
//   - batches: batch run repository for run history.
//   - sources: map of source adapters keyed by source ID.
//   - log: logger instance.
// Returns:
//   - *IngestHandler: initialized handler.
func NewIngestHandler(ingest *service.IngestService, batches *repository.BatchRepository, sources map[string]source.Source, log *logger.Logger) *IngestHandler {
	return &IngestHandler{
		ingest:  ingest,
		batches: batches,
		sources: sources,
		logger:  log,
	}
}

// log returns a logger from Gin context if available, otherwise returns the default logger
func (h *IngestHandler) log(c *gin.Context) *logger.Logger {
	if l := logger.FromContext(c.Request.Context()); l != nil {
		return l
	}
	return h.logger
}

// IngestRequest represents the batch trigger API request.
type IngestRequest struct {
	Source string `json:"source" binding:"required"`
	Limit  int    `json:"limit" binding:"omitempty,min=1,max=10000"`
}

// BatchStatsResponse represents batch counters in API responses.
type BatchStatsResponse struct {
	TotalItems      int64            `json:"total_items"`
	StagedItems     int64            `json:"staged_items"`
	DroppedItems    int64            `json:"dropped_items"`
	FailedItems     int64            `json:"failed_items"`
	Duplicates      int64            `json:"duplicates"`
	DroppedByReason map[string]int64 `json:"dropped_by_reason,omitempty"`
	DurationMs      int64            `json:"duration_ms"`
}

// IngestResponse represents the batch trigger API response.
type IngestResponse struct {
	Message string              `json:"message"`
	Stats   *BatchStatsResponse `json:"stats,omitempty"`
}

// IngestStatusResponse represents the batch run status.
type IngestStatusResponse struct {
	IsRunning     bool                `json:"is_running"`
	LastRunTime   string              `json:"last_run_time,omitempty"`
	LastRunStatus string              `json:"last_run_status,omitempty"`
	LastStats     *BatchStatsResponse `json:"last_stats,omitempty"`
}

func statsResponse(stats *service.BatchStats) *BatchStatsResponse {
	if stats == nil {
		return nil
	}
	resp := &BatchStatsResponse{
		TotalItems:   stats.TotalItems,
		StagedItems:  stats.StagedItems,
		DroppedItems: stats.DroppedItems,
		FailedItems:  stats.FailedItems,
		Duplicates:   stats.Duplicates,
	}
	if !stats.EndTime.IsZero() {
		resp.DurationMs = stats.EndTime.Sub(stats.StartTime).Milliseconds()
	}
	reasons := stats.DroppedReasons()
	if len(reasons) > 0 {
		resp.DroppedByReason = make(map[string]int64, len(reasons))
		for reason, n := range reasons {
			resp.DroppedByReason[string(reason)] = n
		}
	}
	return resp
}

// TriggerBatch handles the batch trigger API endpoint.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IngestHandler) TriggerBatch(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c).WithError(err).Warn("Invalid batch request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, ok := h.sources[req.Source]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown source: " + req.Source})
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "A batch run is already in progress"})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	h.log(c).WithFields(logger.Fields{
		logger.FieldSource: req.Source,
		logger.FieldCount:  req.Limit,
	}).Info("Starting batch run")

	// Detach from the request context so an HTTP timeout does not cancel the
	// run mid-batch.
	stats, err := h.ingest.RunBatch(context.Background(), src, req.Limit)
	statsResp := statsResponse(stats)

	h.mu.Lock()
	h.isRunning = false
	h.lastStats = statsResp
	h.lastRunTime = time.Now()
	if err != nil {
		h.lastRunStatus = "failed: " + err.Error()
	} else {
		h.lastRunStatus = "success"
	}
	h.mu.Unlock()

	if err != nil {
		if errors.Is(err, service.ErrBatchInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.log(c).WithError(err).WithField(logger.FieldSource, req.Source).Error("Batch run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "stats": statsResp})
		return
	}

	c.JSON(http.StatusOK, IngestResponse{
		Message: "Batch run completed",
		Stats:   statsResp,
	})
}

// GetBatchStatus returns the current batch run status.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IngestHandler) GetBatchStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := IngestStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		LastStats:     h.lastStats,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

// ListBatches returns persisted batch run records, most recent first.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IngestHandler) ListBatches(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	runs, err := h.batches.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
