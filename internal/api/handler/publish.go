package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/publisher"
	"github.com/timmy/newshub/internal/service"
)

// PublishHandler handles manual publishing endpoints.
type PublishHandler struct {
	pipeline *service.PipelineService
	bluesky  *publisher.Bluesky
}

// NewPublishHandler creates a new publish handler.
func NewPublishHandler(pipeline *service.PipelineService, bluesky *publisher.Bluesky) *PublishHandler {
	return &PublishHandler{pipeline: pipeline, bluesky: bluesky}
}

type publishRequest struct {
	ArticleID string `json:"article_id" binding:"required"`
}

// Publish handles POST /api/v1/publish. Re-publishing an already-published
// article returns the existing platform ID without a second platform call.
func (h *PublishHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "article_id is required"})
		return
	}

	platformID, err := h.pipeline.ManualPublish(c.Request.Context(), req.ArticleID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"platform_id": platformID})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
	case errors.Is(err, domain.ErrPublisherNotConfigured):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Publisher not configured. Please add Bluesky credentials to the .env file",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish article"})
	}
}

// Status handles GET /api/v1/publish/status.
func (h *PublishHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.bluesky.Status(c.Request.Context()))
}
