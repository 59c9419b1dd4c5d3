package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/logger"
	"github.com/timmy/newshub/internal/source"
)

// ArticleStore is the persistence contract the orchestrator depends on. The
// store's unique constraint on url is the authority for deduplication.
type ArticleStore interface {
	Create(ctx context.Context, article *domain.Article) error
	ExistsByURL(ctx context.Context, url string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	List(ctx context.Context, category string, limit int) ([]domain.Article, error)
	UpdatePublishState(ctx context.Context, id string, status domain.PublishStatus, platformID *string, publishedAt *time.Time) error
	Count(ctx context.Context) (int64, error)
	CountPublished(ctx context.Context) (int64, error)
}

// Enricher generates AI text for an article. Both calls are independent and
// independently replaceable by fallbacks.
type Enricher interface {
	Summarize(ctx context.Context, title, description string) (string, error)
	SocialPost(ctx context.Context, title, description string) (string, error)
}

// Publisher sends a finished post to the social platform.
type Publisher interface {
	IsConfigured() bool
	Publish(ctx context.Context, text string) (string, error)
}

// PipelineOptions holds the loop timings. Zero values fall back to the
// defaults used in production.
type PipelineOptions struct {
	// CycleInterval is the sleep between successful cycles.
	CycleInterval time.Duration
	// ErrorBackoff is the shorter sleep after a cycle with a recorded error.
	ErrorBackoff time.Duration
	// EnrichDelay paces successive enrichment calls within a cycle.
	EnrichDelay time.Duration
	// PostCharLimit is the platform character limit for assembled posts.
	PostCharLimit int
}

const (
	defaultCycleInterval = 30 * time.Minute
	defaultErrorBackoff  = 5 * time.Minute
	defaultEnrichDelay   = time.Second
	defaultPostCharLimit = 300
)

// PipelineService is the orchestration core: it runs the
// fetch-dedup-enrich-persist-(publish) sequence per cycle, owns the run/stop
// state, and is the single mutator of the live configuration.
type PipelineService struct {
	store     ArticleStore
	source    source.NewsSource
	enricher  Enricher
	publisher Publisher
	logger    *logger.Logger

	cycleInterval time.Duration
	errorBackoff  time.Duration
	enrichDelay   time.Duration
	postCharLimit int

	// mu guards running, cfg, and stopCh. It is never held across an
	// external call; the loop snapshots cfg at each cycle boundary.
	mu      sync.Mutex
	running bool
	cfg     domain.PipelineConfig
	stopCh  chan struct{}
}

// NewPipelineService creates the orchestrator.
func NewPipelineService(
	store ArticleStore,
	src source.NewsSource,
	enricher Enricher,
	pub Publisher,
	log *logger.Logger,
	cfg domain.PipelineConfig,
	opts *PipelineOptions,
) *PipelineService {
	if opts == nil {
		opts = &PipelineOptions{}
	}
	p := &PipelineService{
		store:         store,
		source:        src,
		enricher:      enricher,
		publisher:     pub,
		logger:        log,
		cycleInterval: opts.CycleInterval,
		errorBackoff:  opts.ErrorBackoff,
		enrichDelay:   opts.EnrichDelay,
		postCharLimit: opts.PostCharLimit,
		cfg:           cfg,
	}
	if p.cycleInterval <= 0 {
		p.cycleInterval = defaultCycleInterval
	}
	if p.errorBackoff <= 0 {
		p.errorBackoff = defaultErrorBackoff
	}
	if p.enrichDelay < 0 {
		p.enrichDelay = defaultEnrichDelay
	}
	if p.postCharLimit <= 0 {
		p.postCharLimit = defaultPostCharLimit
	}
	return p
}

// log returns a logger from context if available, otherwise the default.
func (p *PipelineService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return p.logger
}

// Start launches the continuous loop. It is idempotent: a second start while
// running returns domain.ErrAlreadyRunning and spawns nothing. Starting
// against an unconfigured source is refused.
func (p *PipelineService) Start() error {
	if !p.source.IsConfigured() {
		return domain.ErrSourceNotConfigured
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go p.runLoop(stopCh)

	p.logger.Info("Pipeline started")
	return nil
}

// Stop requests the loop to end. The in-flight cycle is not interrupted;
// only the next cycle is prevented, so a stop may take up to one cycle to
// take effect. Stopping a stopped pipeline is a no-op.
func (p *PipelineService) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.logger.Info("Pipeline stop requested")
}

// IsRunning reports whether the continuous loop is active.
func (p *PipelineService) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Config returns a snapshot of the live configuration.
func (p *PipelineService) Config() domain.PipelineConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// UpdateConfig replaces the live configuration wholesale. The new value takes
// effect at the next cycle boundary, never mid-cycle.
func (p *PipelineService) UpdateConfig(cfg domain.PipelineConfig) domain.PipelineConfig {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()

	p.logger.WithFields(logger.Fields{
		"category":     cfg.Category,
		"country":      cfg.Country,
		"max_items":    cfg.MaxItems,
		"auto_publish": cfg.AutoPublish,
	}).Info("Pipeline configuration updated")
	return cfg
}

// runLoop executes cycles until stopped. Every processing error is
// recoverable: the loop logs it, backs off, and continues. Only an explicit
// stop ends the loop.
func (p *PipelineService) runLoop(stopCh chan struct{}) {
	for {
		p.mu.Lock()
		running := p.running
		cfg := p.cfg
		p.mu.Unlock()

		if !running {
			p.logger.Info("Pipeline loop exited")
			return
		}

		ctx := logger.SetCycleID(context.Background(), uuid.New().String())
		result := p.RunCycle(ctx, cfg)

		wait := p.cycleInterval
		if result.Err != nil {
			wait = p.errorBackoff
		}

		select {
		case <-time.After(wait):
		case <-stopCh:
			// Wake early; the running check at the top of the loop decides
		}
	}
}

// TriggerCycle runs exactly one cycle synchronously with the current
// configuration, independent of the continuous loop's run state.
func (p *PipelineService) TriggerCycle(ctx context.Context) (domain.CycleResult, error) {
	if !p.source.IsConfigured() {
		return domain.CycleResult{}, domain.ErrSourceNotConfigured
	}
	cfg := p.Config()
	return p.RunCycle(ctx, cfg), nil
}

// RunCycle performs one fetch-dedup-enrich-persist-(publish) pass. A fetch
// failure yields zero counts with a recorded error; per-item failures are
// absorbed so one bad record never aborts the rest of the batch.
func (p *PipelineService) RunCycle(ctx context.Context, cfg domain.PipelineConfig) domain.CycleResult {
	start := time.Now()
	result := domain.CycleResult{}

	p.log(ctx).WithFields(logger.Fields{
		"category":  cfg.Category,
		"country":   cfg.Country,
		"max_items": cfg.MaxItems,
	}).Info("Starting pipeline cycle")

	raw, err := p.source.FetchTopHeadlines(ctx, cfg)
	if err != nil {
		p.log(ctx).WithError(err).Error("Failed to fetch headlines")
		result.Err = err
		return result
	}
	result.Fetched = len(raw)

	enriched := false
	for _, record := range raw {
		// Malformed upstream record: filtered, not an error
		if record.Title == "" || record.URL == "" {
			continue
		}

		exists, err := p.store.ExistsByURL(ctx, record.URL)
		if err != nil {
			p.log(ctx).WithError(err).Error("Failed to check article existence")
			continue
		}
		if exists {
			// Dedup short-circuit: no enrichment call for a known URL
			continue
		}

		if enriched && p.enrichDelay > 0 {
			// Pace the generative API between successive enrichments
			select {
			case <-time.After(p.enrichDelay):
			case <-ctx.Done():
				return result
			}
		}

		// ingest calls the enricher before the insert, so pacing applies
		// even when the insert itself fails
		enriched = true
		article, err := p.ingest(ctx, record, cfg)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateURL) {
				// Another actor inserted this URL between check and insert;
				// the store's unique constraint is the authoritative signal
				continue
			}
			p.log(ctx).WithField("url", record.URL).WithError(err).Error("Failed to ingest article")
			continue
		}
		result.Ingested++

		if cfg.AutoPublish {
			if _, err := p.PublishArticle(ctx, article); err != nil {
				p.log(ctx).WithField(logger.FieldArticleID, article.ID).WithError(err).Warn("Auto-publish failed")
			} else {
				result.Published++
			}
		}
	}

	logger.With(logger.Fields{
		"fetched":              result.Fetched,
		"ingested":             result.Ingested,
		"published":            result.Published,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Pipeline cycle complete")

	return result
}

// ingest enriches one raw record and persists it. Enrichment failures are
// masked by deterministic fallbacks derived from the title; they never block
// persistence. The enrichment fields are written exactly once, here.
func (p *PipelineService) ingest(ctx context.Context, record source.RawArticle, cfg domain.PipelineConfig) (*domain.Article, error) {
	summary, err := p.enricher.Summarize(ctx, record.Title, record.Description)
	if err != nil {
		p.log(ctx).WithField("url", record.URL).WithError(err).Warn("Summary generation failed, using fallback")
		summary = FallbackSummary(record.Title)
	}

	post, err := p.enricher.SocialPost(ctx, record.Title, record.Description)
	if err != nil {
		p.log(ctx).WithField("url", record.URL).WithError(err).Warn("Social post generation failed, using fallback")
		post = FallbackSocialPost(record.Title)
	}

	sourceName := record.SourceName
	if sourceName == "" {
		sourceName = "Unknown"
	}

	article := &domain.Article{
		ID:            uuid.New().String(),
		Title:         record.Title,
		Description:   record.Description,
		Content:       record.Content,
		URL:           record.URL,
		PublishedAt:   record.PublishedAt,
		Source:        sourceName,
		Category:      cfg.Category,
		Summary:       &summary,
		SocialPost:    &post,
		ProcessedAt:   time.Now().UTC(),
		PublishStatus: domain.PublishStatusNotAttempted,
	}
	if record.ImageURL != "" {
		imageURL := record.ImageURL
		article.ImageURL = &imageURL
	}

	if err := p.store.Create(ctx, article); err != nil {
		return nil, err
	}

	p.log(ctx).WithFields(logger.Fields{
		logger.FieldArticleID: article.ID,
		"url":                 article.URL,
	}).Info("Article ingested")

	return article, nil
}

// ListArticles returns stored articles, newest first.
func (p *PipelineService) ListArticles(ctx context.Context, category string, limit int) ([]domain.Article, error) {
	return p.store.List(ctx, category, limit)
}

// GetArticle returns one article by internal ID.
func (p *PipelineService) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	return p.store.GetByID(ctx, id)
}

// PipelineStatus is the control-surface view of the orchestrator state.
type PipelineStatus struct {
	Running           bool                  `json:"running"`
	TotalArticles     int64                 `json:"total_articles"`
	PublishedCount    int64                 `json:"published_count"`
	PublishConfigured bool                  `json:"publish_configured"`
	Config            domain.PipelineConfig `json:"config"`
}

// Status reports the run state, store counts, and live configuration.
func (p *PipelineService) Status(ctx context.Context) (*PipelineStatus, error) {
	total, err := p.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	published, err := p.store.CountPublished(ctx)
	if err != nil {
		return nil, err
	}

	return &PipelineStatus{
		Running:           p.IsRunning(),
		TotalArticles:     total,
		PublishedCount:    published,
		PublishConfigured: p.publisher != nil && p.publisher.IsConfigured(),
		Config:            p.Config(),
	}, nil
}
