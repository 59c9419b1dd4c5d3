package domain

// PublishStatus tracks whether an article's social post has been sent to the
// external platform. Publishing is attempted at most once per article per
// auto-publish cycle; a failed attempt stays retriable via the manual
// publish endpoint.
type PublishStatus string

const (
	PublishStatusNotAttempted PublishStatus = "not_attempted"
	PublishStatusPublished    PublishStatus = "published"
	PublishStatusFailed       PublishStatus = "failed"
)

// CanTransitionTo reports whether moving from the current status to next is a
// legal state change. A published article is terminal, and no status ever
// regresses to not_attempted. Failed may move to published through a manual
// retry, or stay failed when the retry fails again.
func (s PublishStatus) CanTransitionTo(next PublishStatus) bool {
	if s == PublishStatusPublished {
		return false
	}
	return next != PublishStatusNotAttempted
}
