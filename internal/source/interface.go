package source

import (
	"context"
	"time"

	"github.com/timmy/newshub/internal/domain"
)

// RawArticle is one upstream record before ingestion. Records missing a
// title or URL are malformed and get filtered by the orchestrator.
type RawArticle struct {
	Title       string
	Description string
	Content     string
	URL         string
	ImageURL    string
	SourceName  string
	PublishedAt time.Time
}

// NewsSource defines the interface for upstream headline providers.
type NewsSource interface {
	// Name returns the stable identifier for this source.
	Name() string

	// IsConfigured reports whether credentials for the source are present.
	// The pipeline refuses to start against an unconfigured source.
	IsConfigured() bool

	// FetchTopHeadlines fetches one batch of candidate articles for the
	// given pipeline configuration. A failure is reported as an error and
	// treated by the orchestrator as "zero items, log and continue".
	FetchTopHeadlines(ctx context.Context, cfg domain.PipelineConfig) ([]RawArticle, error)
}
