package adapter

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Category classifies a publish failure. The publisher's retry policy keys
// off these, so adapters must map their platform's errors onto them.
type Category string

const (
	CategoryRateLimited   Category = "rate_limited"
	CategoryTargetGone    Category = "target_gone"
	CategoryMediaUnusable Category = "media_unusable"
	CategoryTransient     Category = "transient"
)

// Request is one publish attempt. When InReplyToExternalId is set the post is
// threaded under that post; when QuoteExternalId is set the post references
// it as a standalone quote instead.
type Request struct {
	ReplyText           string
	MediaReference      string
	InReplyToExternalId string
	QuoteExternalId     string
}

type Result struct {
	ExternalPostId string
}

// PublishError is the failure contract between an adapter and the publisher.
type PublishError struct {
	Category   Category
	RawMessage string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed (%s): %s", e.Category, e.RawMessage)
}

// ClassifyError extracts the failure category, defaulting to transient for
// anything an adapter didn't classify.
func ClassifyError(err error) Category {
	var publishErr *PublishError
	if errors.As(err, &publishErr) {
		return publishErr.Category
	}
	return CategoryTransient
}

// PublishAdapter performs the actual network call to post content.
type PublishAdapter interface {
	Publish(ctx context.Context, req Request) (*Result, error)
}

// quoteFallbackAdapter retries a threaded reply as a standalone quote post
// when the target post is gone or hidden, so the content is not silently
// dropped. The fallback runs at most once per publish call.
type quoteFallbackAdapter struct {
	inner PublishAdapter
}

func WithQuoteFallback(inner PublishAdapter) PublishAdapter {
	return &quoteFallbackAdapter{inner: inner}
}

func (a *quoteFallbackAdapter) Publish(ctx context.Context, req Request) (*Result, error) {
	result, err := a.inner.Publish(ctx, req)
	if err == nil || req.InReplyToExternalId == "" {
		return result, err
	}
	if ClassifyError(err) != CategoryTargetGone {
		return nil, err
	}

	fallback := req
	fallback.QuoteExternalId = req.InReplyToExternalId
	fallback.InReplyToExternalId = ""
	return a.inner.Publish(ctx, fallback)
}
