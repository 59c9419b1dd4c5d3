package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/logger"
	"github.com/timmy/newshub/internal/source"
)

// fakeStore is an in-memory ArticleStore keyed by ID with a URL index, so the
// unique-constraint behavior of the real repository can be exercised.
type fakeStore struct {
	mu       sync.Mutex
	articles map[string]*domain.Article
	byURL    map[string]string

	createErr error
	existsErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		articles: make(map[string]*domain.Article),
		byURL:    make(map[string]string),
	}
}

func (s *fakeStore) Create(ctx context.Context, article *domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byURL[article.URL]; ok {
		return domain.ErrDuplicateURL
	}
	copied := *article
	s.articles[article.ID] = &copied
	s.byURL[article.URL] = article.ID
	return nil
}

func (s *fakeStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.byURL[url]
	return ok, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *fakeStore) List(ctx context.Context, category string, limit int) ([]domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if category != "" && a.Category != category {
			continue
		}
		out = append(out, *a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) UpdatePublishState(ctx context.Context, id string, status domain.PublishStatus, platformID *string, publishedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !a.PublishStatus.CanTransitionTo(status) {
		return domain.ErrPublishStateDowngrade
	}
	a.PublishStatus = status
	a.PlatformID = platformID
	a.PublishedToPlatformAt = publishedAt
	return nil
}

func (s *fakeStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.articles)), nil
}

func (s *fakeStore) CountPublished(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.articles {
		if a.PublishStatus == domain.PublishStatusPublished {
			n++
		}
	}
	return n, nil
}

// fakeSource returns a canned batch of raw articles.
type fakeSource struct {
	configured bool
	articles   []source.RawArticle
	err        error
	calls      int
}

func (s *fakeSource) Name() string       { return "fake" }
func (s *fakeSource) IsConfigured() bool { return s.configured }

func (s *fakeSource) FetchTopHeadlines(ctx context.Context, cfg domain.PipelineConfig) ([]source.RawArticle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.articles, nil
}

// fakeEnricher echoes deterministic text, or fails on demand.
type fakeEnricher struct {
	summaryErr error
	postErr    error
	calls      int
	callTimes  []time.Time
}

func (e *fakeEnricher) Summarize(ctx context.Context, title, description string) (string, error) {
	e.calls++
	e.callTimes = append(e.callTimes, time.Now())
	if e.summaryErr != nil {
		return "", e.summaryErr
	}
	return "summary of " + title, nil
}

func (e *fakeEnricher) SocialPost(ctx context.Context, title, description string) (string, error) {
	e.calls++
	e.callTimes = append(e.callTimes, time.Now())
	if e.postErr != nil {
		return "", e.postErr
	}
	return "post about " + title, nil
}

// fakePublisher records publish attempts.
type fakePublisher struct {
	configured bool
	err        error
	calls      int
	lastText   string
}

func (p *fakePublisher) IsConfigured() bool { return p.configured }

func (p *fakePublisher) Publish(ctx context.Context, text string) (string, error) {
	p.calls++
	p.lastText = text
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("at://did:plc:test/app.bsky.feed.post/%d", p.calls), nil
}

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text", Output: io.Discard})
}

func newTestPipeline(store ArticleStore, src source.NewsSource, enricher Enricher, pub Publisher, cfg domain.PipelineConfig) *PipelineService {
	return NewPipelineService(store, src, enricher, pub, testLogger(), cfg, &PipelineOptions{
		CycleInterval: time.Hour,
		ErrorBackoff:  time.Hour,
		PostCharLimit: 300,
	})
}

func rawArticle(n int) source.RawArticle {
	return source.RawArticle{
		Title:       fmt.Sprintf("Headline %d", n),
		Description: fmt.Sprintf("Description %d", n),
		URL:         fmt.Sprintf("https://example.com/news/%d", n),
		SourceName:  "Example News",
		PublishedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func TestRunCycle_IngestsNewArticles(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1), rawArticle(2)}}
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, src, enricher, &fakePublisher{}, domain.DefaultPipelineConfig())

	result := p.RunCycle(context.Background(), p.Config())

	if result.Err != nil {
		t.Fatalf("unexpected cycle error: %v", result.Err)
	}
	if result.Fetched != 2 {
		t.Errorf("expected 2 fetched, got %d", result.Fetched)
	}
	if result.Ingested != 2 {
		t.Errorf("expected 2 ingested, got %d", result.Ingested)
	}
	if result.Published != 0 {
		t.Errorf("expected 0 published, got %d", result.Published)
	}

	count, _ := store.Count(context.Background())
	if count != 2 {
		t.Errorf("expected 2 stored articles, got %d", count)
	}
}

func TestRunCycle_SecondIdenticalCycleIngestsNothing(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1), rawArticle(2)}}
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, src, enricher, &fakePublisher{}, domain.DefaultPipelineConfig())

	first := p.RunCycle(context.Background(), p.Config())
	if first.Ingested != 2 {
		t.Fatalf("expected 2 ingested in first cycle, got %d", first.Ingested)
	}

	enrichCallsAfterFirst := enricher.calls

	summariesAfterFirst := make(map[string]string)
	stored, _ := store.List(context.Background(), "", 10)
	for _, a := range stored {
		if a.Summary == nil {
			t.Fatalf("article %s has no summary after first cycle", a.ID)
		}
		summariesAfterFirst[a.ID] = *a.Summary
	}

	second := p.RunCycle(context.Background(), p.Config())
	if second.Fetched != 2 {
		t.Errorf("expected 2 fetched in second cycle, got %d", second.Fetched)
	}
	if second.Ingested != 0 {
		t.Errorf("expected 0 ingested in second cycle, got %d", second.Ingested)
	}
	// Known URLs must short-circuit before any enrichment call
	if enricher.calls != enrichCallsAfterFirst {
		t.Errorf("expected no enrichment calls for known URLs, got %d extra", enricher.calls-enrichCallsAfterFirst)
	}

	count, _ := store.Count(context.Background())
	if count != 2 {
		t.Errorf("expected 2 stored articles, got %d", count)
	}

	// Enrichment is write-once: a second pass over the same batch must not
	// rewrite the stored summaries
	stored, _ = store.List(context.Background(), "", 10)
	for _, a := range stored {
		if a.Summary == nil || *a.Summary != summariesAfterFirst[a.ID] {
			t.Errorf("summary for %s changed after second cycle", a.ID)
		}
	}
}

func TestRunCycle_PartialOverlap(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1)}}
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, src, enricher, &fakePublisher{}, domain.DefaultPipelineConfig())

	p.RunCycle(context.Background(), p.Config())

	src.articles = []source.RawArticle{rawArticle(1), rawArticle(2)}
	result := p.RunCycle(context.Background(), p.Config())

	if result.Fetched != 2 {
		t.Errorf("expected 2 fetched, got %d", result.Fetched)
	}
	if result.Ingested != 1 {
		t.Errorf("expected 1 ingested, got %d", result.Ingested)
	}
}

func TestRunCycle_FetchFailureRecordsError(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, err: errors.New("upstream down")}
	p := newTestPipeline(store, src, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	result := p.RunCycle(context.Background(), p.Config())

	if result.Err == nil {
		t.Fatal("expected cycle error")
	}
	if result.Fetched != 0 || result.Ingested != 0 || result.Published != 0 {
		t.Errorf("expected zero counts on fetch failure, got %+v", result)
	}
}

func TestRunCycle_SkipsMalformedRecords(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{
		{Title: "", URL: "https://example.com/no-title"},
		{Title: "No URL", URL: ""},
		rawArticle(1),
	}}
	p := newTestPipeline(store, src, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	result := p.RunCycle(context.Background(), p.Config())

	if result.Fetched != 3 {
		t.Errorf("expected 3 fetched, got %d", result.Fetched)
	}
	if result.Ingested != 1 {
		t.Errorf("expected 1 ingested, got %d", result.Ingested)
	}
}

func TestRunCycle_EnrichmentFailureUsesFallbacks(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1)}}
	enricher := &fakeEnricher{summaryErr: errors.New("model overloaded"), postErr: errors.New("model overloaded")}
	p := newTestPipeline(store, src, enricher, &fakePublisher{}, domain.DefaultPipelineConfig())

	result := p.RunCycle(context.Background(), p.Config())

	if result.Err != nil {
		t.Fatalf("unexpected cycle error: %v", result.Err)
	}
	if result.Ingested != 1 {
		t.Fatalf("expected 1 ingested, got %d", result.Ingested)
	}

	articles, _ := store.List(context.Background(), "", 10)
	if len(articles) != 1 {
		t.Fatalf("expected 1 stored article, got %d", len(articles))
	}
	a := articles[0]
	if a.Summary == nil || *a.Summary != FallbackSummary(a.Title) {
		t.Errorf("expected fallback summary, got %v", a.Summary)
	}
	if a.SocialPost == nil || *a.SocialPost != FallbackSocialPost(a.Title) {
		t.Errorf("expected fallback social post, got %v", a.SocialPost)
	}
}

func TestRunCycle_DuplicateInsertRaceIsSilent(t *testing.T) {
	store := newFakeStore()
	// Existence check passes but the insert hits the unique constraint,
	// as when another writer inserts the URL between check and insert
	store.createErr = domain.ErrDuplicateURL

	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1)}}
	p := newTestPipeline(store, src, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	result := p.RunCycle(context.Background(), p.Config())
	if result.Err != nil {
		t.Fatalf("unexpected cycle error: %v", result.Err)
	}
	if result.Ingested != 0 {
		t.Errorf("expected 0 ingested on duplicate insert, got %d", result.Ingested)
	}
}

func TestRunCycle_PacingAppliesAfterFailedInsert(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("disk full")

	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1), rawArticle(2)}}
	enricher := &fakeEnricher{}
	delay := 30 * time.Millisecond
	p := NewPipelineService(store, src, enricher, &fakePublisher{}, testLogger(), domain.DefaultPipelineConfig(), &PipelineOptions{
		CycleInterval: time.Hour,
		ErrorBackoff:  time.Hour,
		EnrichDelay:   delay,
		PostCharLimit: 300,
	})

	result := p.RunCycle(context.Background(), p.Config())

	if result.Ingested != 0 {
		t.Fatalf("expected 0 ingested with a failing store, got %d", result.Ingested)
	}
	// Two records, two enrichment calls each; the delay sits between the
	// last call for record one and the first call for record two, even
	// though nothing was ingested
	if len(enricher.callTimes) != 4 {
		t.Fatalf("expected 4 enrichment calls, got %d", len(enricher.callTimes))
	}
	if gap := enricher.callTimes[2].Sub(enricher.callTimes[1]); gap < delay {
		t.Errorf("expected at least %v between records, got %v", delay, gap)
	}
}

func TestRunCycle_AutoPublish(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1), rawArticle(2)}}
	pub := &fakePublisher{configured: true}
	cfg := domain.DefaultPipelineConfig()
	cfg.AutoPublish = true
	p := newTestPipeline(store, src, &fakeEnricher{}, pub, cfg)

	result := p.RunCycle(context.Background(), p.Config())

	if result.Published != 2 {
		t.Errorf("expected 2 published, got %d", result.Published)
	}
	if pub.calls != 2 {
		t.Errorf("expected 2 publish calls, got %d", pub.calls)
	}

	published, _ := store.CountPublished(context.Background())
	if published != 2 {
		t.Errorf("expected 2 articles marked published, got %d", published)
	}
}

func TestRunCycle_AutoPublishFailureDoesNotAbortCycle(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1), rawArticle(2)}}
	pub := &fakePublisher{configured: true, err: errors.New("platform unavailable")}
	cfg := domain.DefaultPipelineConfig()
	cfg.AutoPublish = true
	p := newTestPipeline(store, src, &fakeEnricher{}, pub, cfg)

	result := p.RunCycle(context.Background(), p.Config())

	if result.Err != nil {
		t.Fatalf("unexpected cycle error: %v", result.Err)
	}
	if result.Ingested != 2 {
		t.Errorf("expected 2 ingested, got %d", result.Ingested)
	}
	if result.Published != 0 {
		t.Errorf("expected 0 published, got %d", result.Published)
	}

	articles, _ := store.List(context.Background(), "", 10)
	for _, a := range articles {
		if a.PublishStatus != domain.PublishStatusFailed {
			t.Errorf("expected failed publish status, got %s", a.PublishStatus)
		}
	}
}

func TestStart_RefusesUnconfiguredSource(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeSource{configured: false}, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	err := p.Start()
	if !errors.Is(err, domain.ErrSourceNotConfigured) {
		t.Errorf("expected ErrSourceNotConfigured, got %v", err)
	}
	if p.IsRunning() {
		t.Error("pipeline should not be running")
	}
}

func TestStart_IsIdempotent(t *testing.T) {
	src := &fakeSource{configured: true}
	p := newTestPipeline(newFakeStore(), src, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	if err := p.Start(); err != nil {
		t.Fatalf("unexpected error on first start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning on second start, got %v", err)
	}
	if !p.IsRunning() {
		t.Error("pipeline should still be running")
	}
}

func TestStop_IsIdempotent(t *testing.T) {
	src := &fakeSource{configured: true}
	p := newTestPipeline(newFakeStore(), src, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	if err := p.Start(); err != nil {
		t.Fatalf("unexpected error on start: %v", err)
	}

	p.Stop()
	if p.IsRunning() {
		t.Error("pipeline should be stopped")
	}

	// Second stop must not panic or block
	p.Stop()
}

func TestStop_AllowsRestart(t *testing.T) {
	src := &fakeSource{configured: true}
	p := newTestPipeline(newFakeStore(), src, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	if err := p.Start(); err != nil {
		t.Fatalf("unexpected error on start: %v", err)
	}
	p.Stop()

	if err := p.Start(); err != nil {
		t.Fatalf("unexpected error on restart: %v", err)
	}
	p.Stop()
}

func TestTriggerCycle_UnconfiguredSource(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeSource{configured: false}, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	_, err := p.TriggerCycle(context.Background())
	if !errors.Is(err, domain.ErrSourceNotConfigured) {
		t.Errorf("expected ErrSourceNotConfigured, got %v", err)
	}
}

func TestTriggerCycle_RunsWithoutLoop(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1)}}
	p := newTestPipeline(store, src, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	result, err := p.TriggerCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Ingested != 1 {
		t.Errorf("expected 1 ingested, got %d", result.Ingested)
	}
	if p.IsRunning() {
		t.Error("manual trigger must not start the loop")
	}
}

func TestUpdateConfig_ReplacesWholesale(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeSource{configured: true}, &fakeEnricher{}, &fakePublisher{}, domain.DefaultPipelineConfig())

	next := domain.PipelineConfig{Category: "business", Country: "gb", Language: "en", MaxItems: 5}
	got := p.UpdateConfig(next)

	if got != next {
		t.Errorf("expected returned config %+v, got %+v", next, got)
	}
	if p.Config() != next {
		t.Errorf("expected live config %+v, got %+v", next, p.Config())
	}
}

func TestStatus_ReportsCountsAndConfig(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{configured: true, articles: []source.RawArticle{rawArticle(1), rawArticle(2)}}
	pub := &fakePublisher{configured: true}
	cfg := domain.DefaultPipelineConfig()
	cfg.AutoPublish = true
	p := newTestPipeline(store, src, &fakeEnricher{}, pub, cfg)

	p.RunCycle(context.Background(), p.Config())

	status, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Running {
		t.Error("expected running=false")
	}
	if status.TotalArticles != 2 {
		t.Errorf("expected 2 total articles, got %d", status.TotalArticles)
	}
	if status.PublishedCount != 2 {
		t.Errorf("expected 2 published, got %d", status.PublishedCount)
	}
	if !status.PublishConfigured {
		t.Error("expected publish_configured=true")
	}
	if status.Config.Category != cfg.Category {
		t.Errorf("expected category %q, got %q", cfg.Category, status.Config.Category)
	}
}
