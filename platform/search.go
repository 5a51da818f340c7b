package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	TwitterPlatform = "twitter"
	RedditPlatform  = "reddit"
)

// Post is one raw search result as returned by a platform, before any
// filtering or scoring.
type Post struct {
	Platform          string
	ExternalId        string
	AuthorHandle      string
	AuthorDisplayName string
	AuthorBio         string
	// Nil when the platform doesn't expose follower counts on search results.
	AuthorFollowerCount *int
	Content             string
	CreatedAt           time.Time
	Likes               int
	Replies             int
	Shares              int
	Views               int
}

// Searcher is a platform search collaborator. Implementations must surface
// rate limiting as *RateLimitError so a hunt cycle can count it without
// aborting the remaining keywords.
type Searcher interface {
	Platform() string
	Search(ctx context.Context, query string, maxResults int) ([]Post, error)
}

// RateLimitError is returned when the platform throttles us. RetryAfter is
// zero when the platform doesn't say.
type RateLimitError struct {
	Platform   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Platform, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Platform)
}

// IsRateLimit reports whether err is a platform rate-limit error.
func IsRateLimit(err error) bool {
	var rateLimited *RateLimitError
	return errors.As(err, &rateLimited)
}
