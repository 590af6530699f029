package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plentyofmemes/memepipe/internal/api/middleware"
	"github.com/plentyofmemes/memepipe/internal/repository"
	"github.com/plentyofmemes/memepipe/internal/service"
)

// FeedHandler serves the public feed endpoints.
type FeedHandler struct {
	feedService *service.FeedService
}

// NewFeedHandler creates a new feed handler.
// Parameters:
//   - feedService: feed service instance.
// Returns:
//   - *FeedHandler: initialized handler.
func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// ListFeed handles GET /api/v1/feed.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *FeedHandler) ListFeed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.feedService.Page(c.Request.Context(), middleware.GetActor(c), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list feed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMeme handles GET /api/v1/feed/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *FeedHandler) GetMeme(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Meme ID is required",
		})
		return
	}

	meme, err := h.feedService.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Meme not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, meme)
}
