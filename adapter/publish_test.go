package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAdapter struct {
	errs     []error
	requests []Request
}

func (a *scriptedAdapter) Publish(ctx context.Context, req Request) (*Result, error) {
	a.requests = append(a.requests, req)
	if len(a.errs) > 0 {
		err := a.errs[0]
		a.errs = a.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &Result{ExternalPostId: "ext-1"}, nil
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, CategoryRateLimited, ClassifyError(&PublishError{Category: CategoryRateLimited}))
	assert.Equal(t, CategoryTargetGone, ClassifyError(errors.Wrap(&PublishError{Category: CategoryTargetGone}, "publish")))
	assert.Equal(t, CategoryTransient, ClassifyError(errors.New("connection reset")))
}

func TestQuoteFallbackOnTargetGone(t *testing.T) {
	inner := &scriptedAdapter{errs: []error{
		&PublishError{Category: CategoryTargetGone, RawMessage: "404"},
	}}
	adapter := WithQuoteFallback(inner)

	result, err := adapter.Publish(context.Background(), Request{
		ReplyText:           "hello",
		MediaReference:      "ref-1",
		InReplyToExternalId: "orig-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", result.ExternalPostId)

	require.Len(t, inner.requests, 2)
	assert.Equal(t, "orig-1", inner.requests[0].InReplyToExternalId)
	assert.Empty(t, inner.requests[0].QuoteExternalId)
	// The retry quotes the original instead of threading under it, and
	// keeps the text and media.
	assert.Empty(t, inner.requests[1].InReplyToExternalId)
	assert.Equal(t, "orig-1", inner.requests[1].QuoteExternalId)
	assert.Equal(t, "hello", inner.requests[1].ReplyText)
	assert.Equal(t, "ref-1", inner.requests[1].MediaReference)
}

func TestQuoteFallbackRunsAtMostOnce(t *testing.T) {
	inner := &scriptedAdapter{errs: []error{
		&PublishError{Category: CategoryTargetGone, RawMessage: "404"},
		&PublishError{Category: CategoryTargetGone, RawMessage: "404 again"},
	}}
	adapter := WithQuoteFallback(inner)

	_, err := adapter.Publish(context.Background(), Request{InReplyToExternalId: "orig-1"})
	require.Error(t, err)
	assert.Len(t, inner.requests, 2)
	assert.Contains(t, err.Error(), "404 again")
}

func TestQuoteFallbackSkippedWithoutReplyTarget(t *testing.T) {
	inner := &scriptedAdapter{errs: []error{
		&PublishError{Category: CategoryTargetGone, RawMessage: "404"},
	}}
	adapter := WithQuoteFallback(inner)

	_, err := adapter.Publish(context.Background(), Request{ReplyText: "standalone"})
	require.Error(t, err)
	assert.Len(t, inner.requests, 1)
}

func TestQuoteFallbackSkippedForOtherCategories(t *testing.T) {
	for _, category := range []Category{CategoryRateLimited, CategoryMediaUnusable, CategoryTransient} {
		inner := &scriptedAdapter{errs: []error{
			&PublishError{Category: category, RawMessage: "nope"},
		}}
		adapter := WithQuoteFallback(inner)

		_, err := adapter.Publish(context.Background(), Request{InReplyToExternalId: "orig-1"})
		require.Error(t, err)
		assert.Len(t, inner.requests, 1, "category=%s", category)
		assert.Equal(t, category, ClassifyError(err))
	}
}

func TestHTTPAdapterSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"external_post_id": "ext-99"}`))
	}))
	defer server.Close()

	result, err := NewHTTPAdapter(server.URL).Publish(context.Background(), Request{ReplyText: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ext-99", result.ExternalPostId)
}

func TestHTTPAdapterStatusMapping(t *testing.T) {
	cases := []struct {
		status   int
		category Category
	}{
		{http.StatusTooManyRequests, CategoryRateLimited},
		{http.StatusNotFound, CategoryTargetGone},
		{http.StatusGone, CategoryTargetGone},
		{http.StatusForbidden, CategoryTargetGone},
		{http.StatusUnprocessableEntity, CategoryMediaUnusable},
		{http.StatusInternalServerError, CategoryTransient},
		{http.StatusBadGateway, CategoryTransient},
	}
	for _, c := range cases {
		status := c.status
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := NewHTTPAdapter(server.URL).Publish(context.Background(), Request{ReplyText: "hello"})
		require.Error(t, err, "status=%d", c.status)
		assert.Equal(t, c.category, ClassifyError(err), "status=%d", c.status)
		server.Close()
	}
}

func TestHTTPAdapterEmptyPostIdIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "gateway busy"}`))
	}))
	defer server.Close()

	_, err := NewHTTPAdapter(server.URL).Publish(context.Background(), Request{ReplyText: "hello"})
	require.Error(t, err)
	assert.Equal(t, CategoryTransient, ClassifyError(err))
}
