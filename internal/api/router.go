package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/newshub/internal/api/handler"
	"github.com/timmy/newshub/internal/api/middleware"
	"github.com/timmy/newshub/internal/logger"
	"github.com/timmy/newshub/internal/publisher"
	"github.com/timmy/newshub/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	pipeline *service.PipelineService,
	bluesky *publisher.Bluesky,
	log *logger.Logger,
	mode string,
	corsCfg middleware.CORSConfig,
) *gin.Engine {
	// Set Gin mode
	switch mode {
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
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(corsCfg))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	articleHandler := handler.NewArticleHandler(pipeline)
	pipelineHandler := handler.NewPipelineHandler(pipeline)
	publishHandler := handler.NewPublishHandler(pipeline, bluesky)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Articles
		v1.GET("/articles", articleHandler.ListArticles)
		v1.GET("/articles/:id", articleHandler.GetArticle)

		// Pipeline control
		v1.POST("/pipeline/start", pipelineHandler.Start)
		v1.POST("/pipeline/stop", pipelineHandler.Stop)
		v1.GET("/pipeline/status", pipelineHandler.Status)
		v1.POST("/config", pipelineHandler.UpdateConfig)
		v1.POST("/process-manual", pipelineHandler.TriggerCycle)

		// Publishing
		v1.POST("/publish", publishHandler.Publish)
		v1.GET("/publish/status", publishHandler.Status)
	}

	return r
}
