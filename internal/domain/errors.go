package domain

import "errors"

// Sentinel errors shared across the repository, service, and API layers.
// Adapter-level failures are converted to one of these at the orchestrator
// boundary; raw transport errors never reach the handlers.
var (
	// ErrDuplicateURL signals that an article with the same canonical URL is
	// already stored. Callers treat it as "already ingested", not a failure.
	ErrDuplicateURL = errors.New("article with this url already exists")

	// ErrNotFound signals an unknown article ID.
	ErrNotFound = errors.New("article not found")

	// ErrAlreadyRunning is returned by a start request while the continuous
	// loop is active.
	ErrAlreadyRunning = errors.New("pipeline is already running")

	// ErrSourceNotConfigured means the news API key is missing.
	ErrSourceNotConfigured = errors.New("news source is not configured")

	// ErrPublisherNotConfigured means publishing credentials are missing.
	ErrPublisherNotConfigured = errors.New("publisher is not configured")

	// ErrPublishStateDowngrade is returned by the store when an update would
	// regress a published article.
	ErrPublishStateDowngrade = errors.New("publish state cannot be downgraded")
)
