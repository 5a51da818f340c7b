package model

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

// MetricsEnvelope is a tagged union of per-platform engagement metrics,
// keyed by Platform. Exactly one variant is non-nil. It is serialized into
// the Draft's PlatformMetrics JSON column, so each platform keeps its own
// metric shape instead of sharing an untyped bag of optional fields.
type MetricsEnvelope struct {
	Platform string          `json:"platform"`
	Twitter  *TwitterMetrics `json:"twitter,omitempty"`
	Reddit   *RedditMetrics  `json:"reddit,omitempty"`
}

type TwitterMetrics struct {
	Likes           int `json:"likes"`
	Replies         int `json:"replies"`
	Retweets        int `json:"retweets"`
	Quotes          int `json:"quotes"`
	Views           int `json:"views"`
	AuthorFollowers int `json:"author_followers"`
}

type RedditMetrics struct {
	Upvotes             int     `json:"upvotes"`
	Comments            int     `json:"comments"`
	UpvoteRatio         float64 `json:"upvote_ratio"`
	SubredditSubscribers int    `json:"subreddit_subscribers"`
}

// ToJSON serializes the envelope for storage on a Draft.
func (e *MetricsEnvelope) ToJSON() (datatypes.JSON, error) {
	bytes, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "fail to marshal metrics envelope")
	}
	return datatypes.JSON(bytes), nil
}

// ParseMetricsEnvelope decodes the PlatformMetrics column of a Draft. A draft
// created before metrics were recorded decodes to an empty envelope.
func ParseMetricsEnvelope(raw datatypes.JSON) (*MetricsEnvelope, error) {
	envelope := &MetricsEnvelope{}
	if len(raw) == 0 {
		return envelope, nil
	}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return nil, errors.Wrap(err, "fail to unmarshal metrics envelope")
	}
	return envelope, nil
}
