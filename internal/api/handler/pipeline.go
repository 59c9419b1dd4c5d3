package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/service"
)

// PipelineHandler handles pipeline control endpoints.
type PipelineHandler struct {
	pipeline *service.PipelineService
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(pipeline *service.PipelineService) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline}
}

// Start handles POST /api/v1/pipeline/start. Starting an already-running
// pipeline is a no-op, not an error.
func (h *PipelineHandler) Start(c *gin.Context) {
	err := h.pipeline.Start()
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "News pipeline started"})
	case errors.Is(err, domain.ErrAlreadyRunning):
		c.JSON(http.StatusOK, gin.H{"message": "Pipeline is already running"})
	case errors.Is(err, domain.ErrSourceNotConfigured):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "NEWS_API_KEY not configured. Please add your news API key to the .env file",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start pipeline"})
	}
}

// Stop handles POST /api/v1/pipeline/stop.
func (h *PipelineHandler) Stop(c *gin.Context) {
	h.pipeline.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "News pipeline stopped"})
}

// Status handles GET /api/v1/pipeline/status.
func (h *PipelineHandler) Status(c *gin.Context) {
	status, err := h.pipeline.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read pipeline status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// UpdateConfig handles POST /api/v1/config. The configuration is replaced
// wholesale; it takes effect at the next cycle boundary.
func (h *PipelineHandler) UpdateConfig(c *gin.Context) {
	var cfg domain.PipelineConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid configuration: " + err.Error()})
		return
	}

	applied := h.pipeline.UpdateConfig(cfg)
	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration updated",
		"config":  applied,
	})
}

// TriggerCycle handles POST /api/v1/process-manual: one synchronous cycle
// with the current configuration, independent of the loop's run state.
func (h *PipelineHandler) TriggerCycle(c *gin.Context) {
	result, err := h.pipeline.TriggerCycle(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSourceNotConfigured) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "NEWS_API_KEY not configured. Please add your news API key to the .env file",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing articles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Manual processing complete",
		"fetched":   result.Fetched,
		"processed": result.Ingested,
		"published": result.Published,
	})
}
