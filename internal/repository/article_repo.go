package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/newshub/internal/domain"
	"gorm.io/gorm"
)

// ArticleRepository persists processed articles. The unique index on url is
// the authority for deduplication: Create fails with domain.ErrDuplicateURL
// on conflict, which closes the race between the existence check and the
// insert when the loop and a manual trigger process the same batch.
type ArticleRepository struct {
	db *gorm.DB
}

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts a new article record. Returns domain.ErrDuplicateURL when
// an article with the same canonical URL already exists.
func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	if err := r.db.WithContext(ctx).Create(article).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateURL
		}
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// GetByID retrieves an article by its internal ID.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	var article domain.Article
	if err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get article %s: %w", id, err)
	}
	return &article, nil
}

// ExistsByURL checks whether an article with the given URL is already stored.
// Used as the cheap dedup short-circuit before any enrichment call is made.
func (r *ArticleRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Article{}).Where("url = ?", url).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check url existence: %w", err)
	}
	return count > 0, nil
}

// List retrieves articles ordered by processing time, newest first. An empty
// category means all categories.
func (r *ArticleRepository) List(ctx context.Context, category string, limit int) ([]domain.Article, error) {
	var articles []domain.Article
	query := r.db.WithContext(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.
		Order("processed_at DESC").
		Limit(limit).
		Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// UpdatePublishState applies a publish state transition as a partial update.
// Only the publish fields are touched; enrichment fields stay write-once.
// Illegal transitions (any downgrade of a published article) are rejected
// with domain.ErrPublishStateDowngrade.
func (r *ArticleRepository) UpdatePublishState(ctx context.Context, id string, status domain.PublishStatus, platformID *string, publishedAt *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Article
		if err := tx.Select("id", "publish_status").First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to load article %s: %w", id, err)
		}

		if !current.PublishStatus.CanTransitionTo(status) {
			return domain.ErrPublishStateDowngrade
		}

		updates := map[string]interface{}{
			"publish_status":           status,
			"platform_id":              platformID,
			"published_to_platform_at": publishedAt,
		}
		if err := tx.Model(&domain.Article{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update publish state for %s: %w", id, err)
		}
		return nil
	})
}

// Count returns the total number of stored articles.
func (r *ArticleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Article{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// CountPublished returns the number of articles whose post reached the
// platform.
func (r *ArticleRepository) CountPublished(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Article{}).
		Where("publish_status = ?", domain.PublishStatusPublished).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count published articles: %w", err)
	}
	return count, nil
}
