package domain

import "time"

// Article represents a single ingested, enriched news record. Articles are
// keyed by an internal ID and deduplicated by their canonical URL, which is
// immutable once set.
type Article struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Content     string    `gorm:"type:text" json:"content,omitempty"`
	URL         string    `gorm:"type:text;not null;uniqueIndex:idx_articles_url" json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `gorm:"type:text" json:"source"`
	Category    string    `gorm:"type:text;index:idx_articles_category" json:"category"`

	// Enrichment fields are written once at ingestion and never regenerated.
	Summary    *string `gorm:"type:text" json:"summary"`
	SocialPost *string `gorm:"type:text" json:"social_post"`

	ImageURL    *string   `gorm:"type:text" json:"image_url,omitempty"`
	ProcessedAt time.Time `gorm:"index:idx_articles_processed_at" json:"processed_at"`

	PublishStatus         PublishStatus `gorm:"type:text;default:not_attempted;index:idx_articles_publish_status" json:"publish_status"`
	PlatformID            *string       `gorm:"type:text" json:"platform_id,omitempty"`
	PublishedToPlatformAt *time.Time    `json:"published_to_platform_at,omitempty"`
}

// TableName returns the database table name for Article.
func (Article) TableName() string {
	return "articles"
}

// PipelineConfig controls what the pipeline fetches per cycle. It is replaced
// wholesale on update and read only at cycle boundaries, never mid-cycle.
type PipelineConfig struct {
	Category    string `json:"category"`
	Country     string `json:"country"`
	Language    string `json:"language"`
	MaxItems    int    `json:"max_items"`
	AutoPublish bool   `json:"auto_publish"`
}

// DefaultPipelineConfig returns the initial fetch configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Category: "technology",
		Country:  "us",
		Language: "en",
		MaxItems: 10,
	}
}

// CycleResult aggregates the counts of one fetch-dedup-enrich-persist pass.
// Err records a fetch failure; it is informational, not fatal to the loop.
type CycleResult struct {
	Fetched   int   `json:"fetched"`
	Ingested  int   `json:"ingested"`
	Published int   `json:"published"`
	Err       error `json:"-"`
}
