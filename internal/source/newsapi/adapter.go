package newsapi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/source"
)

const SourceName = "newsapi"

// placeholderKey is the value shipped in .env templates; it counts as
// unconfigured so a fresh deployment fails fast instead of burning requests.
const placeholderKey = "demo_key"

// Adapter implements source.NewsSource against the NewsAPI top-headlines
// endpoint.
type Adapter struct {
	client  *resty.Client
	apiKey  string
	baseURL string
}

// Config holds NewsAPI connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewAdapter creates a new NewsAPI adapter.
func NewAdapter(cfg *Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://newsapi.org/v2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)

	return &Adapter{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
	}
}

// Name returns the stable identifier for this source.
func (a *Adapter) Name() string {
	return SourceName
}

// IsConfigured reports whether a usable API key is present.
func (a *Adapter) IsConfigured() bool {
	return a.apiKey != "" && a.apiKey != placeholderKey
}

type headlinesResponse struct {
	Status       string       `json:"status"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []rawArticle `json:"articles"`
}

type rawArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// FetchTopHeadlines fetches one batch of candidate articles.
func (a *Adapter) FetchTopHeadlines(ctx context.Context, cfg domain.PipelineConfig) ([]source.RawArticle, error) {
	var resp headlinesResponse
	httpResp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apiKey":   a.apiKey,
			"category": cfg.Category,
			"country":  cfg.Country,
			"language": cfg.Language,
			"pageSize": strconv.Itoa(cfg.MaxItems),
		}).
		SetResult(&resp).
		Get(a.baseURL + "/top-headlines")

	if err != nil {
		return nil, fmt.Errorf("failed to call news API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Message != "" {
			return nil, fmt.Errorf("news API returned HTTP %d: %s", httpResp.StatusCode(), resp.Message)
		}
		return nil, fmt.Errorf("news API returned HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}

	if resp.Status != "ok" {
		return nil, fmt.Errorf("news API returned status %q: %s", resp.Status, resp.Message)
	}

	articles := make([]source.RawArticle, 0, len(resp.Articles))
	for _, raw := range resp.Articles {
		articles = append(articles, source.RawArticle{
			Title:       raw.Title,
			Description: raw.Description,
			Content:     raw.Content,
			URL:         raw.URL,
			ImageURL:    raw.URLToImage,
			SourceName:  raw.Source.Name,
			PublishedAt: parsePublishedAt(raw.PublishedAt),
		})
	}

	return articles, nil
}

// parsePublishedAt tolerates missing or malformed timestamps; the record is
// still usable, only its ordering hint is lost.
func parsePublishedAt(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
