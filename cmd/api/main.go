package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/newshub/internal/api"
	"github.com/timmy/newshub/internal/api/middleware"
	"github.com/timmy/newshub/internal/config"
	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/logger"
	"github.com/timmy/newshub/internal/publisher"
	"github.com/timmy/newshub/internal/repository"
	"github.com/timmy/newshub/internal/service"
	"github.com/timmy/newshub/internal/source/newsapi"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	articleRepo := repository.NewArticleRepository(db)

	// Initialize adapters
	newsSource := newsapi.NewAdapter(&newsapi.Config{
		APIKey:  cfg.News.APIKey,
		BaseURL: cfg.News.BaseURL,
		Timeout: cfg.News.Timeout,
	})

	enrichment := service.NewEnrichmentService(&service.EnrichmentConfig{
		Model:   cfg.AI.Model,
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout,
	})
	appLogger.WithField("model", enrichment.GetModel()).Info("Enrichment service initialized")

	bluesky := publisher.New(&publisher.Config{
		Host:        cfg.Bluesky.Host,
		Identifier:  cfg.Bluesky.Identifier,
		AppPassword: cfg.Bluesky.AppPassword,
		Timeout:     cfg.Bluesky.Timeout,
	})

	// Initialize the orchestrator
	pipeline := service.NewPipelineService(
		articleRepo,
		newsSource,
		enrichment,
		bluesky,
		appLogger,
		domain.PipelineConfig{
			Category:    cfg.Pipeline.Category,
			Country:     cfg.Pipeline.Country,
			Language:    cfg.Pipeline.Language,
			MaxItems:    cfg.Pipeline.MaxItems,
			AutoPublish: cfg.Pipeline.AutoPublish,
		},
		&service.PipelineOptions{
			CycleInterval: cfg.Pipeline.Interval,
			ErrorBackoff:  cfg.Pipeline.ErrorBackoff,
			EnrichDelay:   cfg.Pipeline.EnrichDelay,
			PostCharLimit: cfg.Pipeline.PostCharLimit,
		},
	)

	// Setup router
	router := api.SetupRouter(pipeline, bluesky, appLogger, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
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

	// Stop the pipeline loop; an in-flight cycle is left to finish
	pipeline.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
