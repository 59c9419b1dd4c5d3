package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/newshub/internal/config"
	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/logger"
	"github.com/timmy/newshub/internal/publisher"
	"github.com/timmy/newshub/internal/repository"
	"github.com/timmy/newshub/internal/service"
	"github.com/timmy/newshub/internal/source/newsapi"
)

// Runs a single fetch/enrich/persist cycle and exits. Useful for cron
// driven deployments and for backfilling without the API server.
func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "newshub-cycle",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	category := flag.String("category", "", "Override news category for this cycle")
	maxItems := flag.Int("max-items", 0, "Override maximum articles to fetch")
	autoPublish := flag.Bool("publish", false, "Publish ingested articles to the social platform")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

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
	if !newsSource.IsConfigured() {
		appLogger.Fatal("NEWS_API_KEY not configured")
	}

	enrichment := service.NewEnrichmentService(&service.EnrichmentConfig{
		Model:   cfg.AI.Model,
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout,
	})

	bluesky := publisher.New(&publisher.Config{
		Host:        cfg.Bluesky.Host,
		Identifier:  cfg.Bluesky.Identifier,
		AppPassword: cfg.Bluesky.AppPassword,
		Timeout:     cfg.Bluesky.Timeout,
	})

	pipelineCfg := domain.PipelineConfig{
		Category:    cfg.Pipeline.Category,
		Country:     cfg.Pipeline.Country,
		Language:    cfg.Pipeline.Language,
		MaxItems:    cfg.Pipeline.MaxItems,
		AutoPublish: cfg.Pipeline.AutoPublish,
	}
	if *category != "" {
		pipelineCfg.Category = *category
	}
	if *maxItems > 0 {
		pipelineCfg.MaxItems = *maxItems
	}
	if *autoPublish {
		pipelineCfg.AutoPublish = true
	}

	pipeline := service.NewPipelineService(
		articleRepo,
		newsSource,
		enrichment,
		bluesky,
		appLogger,
		pipelineCfg,
		&service.PipelineOptions{
			EnrichDelay:   cfg.Pipeline.EnrichDelay,
			PostCharLimit: cfg.Pipeline.PostCharLimit,
		},
	)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	appLogger.WithFields(logger.Fields{
		"category":     pipelineCfg.Category,
		"country":      pipelineCfg.Country,
		"max_items":    pipelineCfg.MaxItems,
		"auto_publish": pipelineCfg.AutoPublish,
	}).Info("Running pipeline cycle")

	result := pipeline.RunCycle(ctx, pipelineCfg)
	if result.Err != nil {
		appLogger.WithError(result.Err).Fatal("Cycle failed")
	}

	appLogger.WithFields(logger.Fields{
		"fetched":   result.Fetched,
		"ingested":  result.Ingested,
		"published": result.Published,
	}).Info("Cycle completed")
}
