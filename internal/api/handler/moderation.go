package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plentyofmemes/memepipe/internal/domain"
	"github.com/plentyofmemes/memepipe/internal/repository"
	"github.com/plentyofmemes/memepipe/internal/service"
)

// ModerationHandler handles administrator moderation endpoints.
type ModerationHandler struct {
	moderation *service.ModerationService
}

// NewModerationHandler creates a new moderation handler.
// Parameters:
//   - moderation: moderation service instance.
// Returns:
//   - *ModerationHandler: initialized handler.
func NewModerationHandler(moderation *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

// ApproveRequest is the approve API request body.
type ApproveRequest struct {
	PublishedAt *time.Time `json:"published_at"` // optional; future-dating schedules publication
}

// EditRequest is the title edit API request body.
type EditRequest struct {
	Title string `json:"title" binding:"required"`
}

// ListQueue handles GET /api/v1/admin/memes?status=pending.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ModerationHandler) ListQueue(c *gin.Context) {
	status := domain.MemeStatus(c.DefaultQuery("status", string(domain.MemeStatusPending)))
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + string(status)})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.moderation.ListQueue(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}

// Approve handles POST /api/v1/admin/memes/:id/approve.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ModerationHandler) Approve(c *gin.Context) {
	var req ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	publishAt := time.Time{}
	if req.PublishedAt != nil {
		publishAt = *req.PublishedAt
	}

	meme, err := h.moderation.Approve(c.Request.Context(), c.Param("id"), publishAt)
	if err != nil {
		h.writeModerationError(c, err)
		return
	}
	c.JSON(http.StatusOK, meme)
}

// Reject handles POST /api/v1/admin/memes/:id/reject.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ModerationHandler) Reject(c *gin.Context) {
	meme, err := h.moderation.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeModerationError(c, err)
		return
	}
	c.JSON(http.StatusOK, meme)
}

// Unpublish handles POST /api/v1/admin/memes/:id/unpublish.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ModerationHandler) Unpublish(c *gin.Context) {
	meme, err := h.moderation.Unpublish(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeModerationError(c, err)
		return
	}
	c.JSON(http.StatusOK, meme)
}

// Edit handles PATCH /api/v1/admin/memes/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ModerationHandler) Edit(c *gin.Context) {
	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meme, err := h.moderation.EditTitle(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		h.writeModerationError(c, err)
		return
	}
	c.JSON(http.StatusOK, meme)
}

// writeModerationError maps service errors to HTTP statuses.
func (h *ModerationHandler) writeModerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Meme not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrStatusConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
