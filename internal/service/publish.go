package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/newshub/internal/domain"
	"github.com/timmy/newshub/internal/logger"
)

// postLinkSeparator sits between the promotional text and the article link.
const postLinkSeparator = "\n\n"

// ellipsis marks a truncated post.
const ellipsis = '…'

// BuildPostText assembles the final post: promotional text, separator, then
// the canonical link. The text portion is truncated with an ellipsis so the
// whole post fits the platform's character limit. Limits are counted in
// runes, matching how the platform counts them.
func BuildPostText(post, link string, limit int) string {
	budget := limit - len([]rune(link)) - len([]rune(postLinkSeparator))
	if budget <= 0 {
		// No room for any text; the link itself may still exceed the limit
		linkRunes := []rune(link)
		if len(linkRunes) > limit {
			linkRunes = append(linkRunes[:limit-1], ellipsis)
		}
		return string(linkRunes)
	}

	runes := []rune(post)
	if len(runes) > budget {
		runes = append(runes[:budget-1], ellipsis)
	}
	return string(runes) + postLinkSeparator + link
}

// PublishArticle sends the article's promotional post to the platform and
// records the outcome. Re-invoking on an already-published article is a
// no-op returning the stored platform ID, without a second external call.
// A failed attempt is recorded as failed — terminal for the cycle but
// manually retriable, since blind retries risk duplicate posts.
func (p *PipelineService) PublishArticle(ctx context.Context, article *domain.Article) (string, error) {
	if article.PublishStatus == domain.PublishStatusPublished {
		if article.PlatformID != nil {
			return *article.PlatformID, nil
		}
		return "", nil
	}

	if p.publisher == nil || !p.publisher.IsConfigured() {
		return "", domain.ErrPublisherNotConfigured
	}

	post := FallbackSocialPost(article.Title)
	if article.SocialPost != nil && *article.SocialPost != "" {
		post = *article.SocialPost
	}
	text := BuildPostText(post, article.URL, p.postCharLimit)

	platformID, err := p.publisher.Publish(ctx, text)
	if err != nil {
		if uerr := p.store.UpdatePublishState(ctx, article.ID, domain.PublishStatusFailed, nil, nil); uerr != nil {
			p.log(ctx).WithField(logger.FieldArticleID, article.ID).WithError(uerr).Error("Failed to record publish failure")
		}
		article.PublishStatus = domain.PublishStatusFailed
		return "", fmt.Errorf("failed to publish article %s: %w", article.ID, err)
	}

	now := time.Now().UTC()
	if uerr := p.store.UpdatePublishState(ctx, article.ID, domain.PublishStatusPublished, &platformID, &now); uerr != nil {
		// The post is already out; losing the state write must not undo that
		p.log(ctx).WithField(logger.FieldArticleID, article.ID).WithError(uerr).Error("Failed to record publish success")
	}
	article.PublishStatus = domain.PublishStatusPublished
	article.PlatformID = &platformID
	article.PublishedToPlatformAt = &now

	p.log(ctx).WithFields(logger.Fields{
		logger.FieldArticleID: article.ID,
		"platform_id":         platformID,
	}).Info("Article published")

	return platformID, nil
}

// ManualPublish publishes one article by ID, used by the control surface for
// on-demand posting and for retrying failed attempts.
func (p *PipelineService) ManualPublish(ctx context.Context, id string) (string, error) {
	article, err := p.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.PublishArticle(ctx, article)
}
