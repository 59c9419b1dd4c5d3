package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/service"
)

// ArticleHandler handles article query endpoints.
type ArticleHandler struct {
	pipeline *service.PipelineService
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(pipeline *service.PipelineService) *ArticleHandler {
	return &ArticleHandler{pipeline: pipeline}
}

// ListArticles handles GET /api/v1/articles.
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	category := c.Query("category")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}

	articles, err := h.pipeline.ListArticles(c.Request.Context(), category, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list articles",
		})
		return
	}

	c.JSON(http.StatusOK, articles)
}

// GetArticle handles GET /api/v1/articles/:id.
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	id := c.Param("id")

	article, err := h.pipeline.GetArticle(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Article not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch article",
		})
		return
	}

	c.JSON(http.StatusOK, article)
}
