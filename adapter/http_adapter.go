package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// HTTPAdapter posts content through the platform gateway service, which owns
// credentials and the platform-specific wire format.
type HTTPAdapter struct {
	endpoint string
	client   *http.Client
}

func NewHTTPAdapter(endpoint string) *HTTPAdapter {
	return &HTTPAdapter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type publishRequestBody struct {
	ReplyText           string `json:"reply_text"`
	MediaReference      string `json:"media_reference"`
	InReplyToExternalId string `json:"in_reply_to_external_id,omitempty"`
	QuoteExternalId     string `json:"quote_external_id,omitempty"`
}

type publishResponseBody struct {
	ExternalPostId string `json:"external_post_id"`
	Error          string `json:"error"`
}

func (a *HTTPAdapter) Publish(ctx context.Context, req Request) (*Result, error) {
	payload, err := json.Marshal(publishRequestBody{
		ReplyText:           req.ReplyText,
		MediaReference:      req.MediaReference,
		InReplyToExternalId: req.InReplyToExternalId,
		QuoteExternalId:     req.QuoteExternalId,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to marshal publish request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "fail to build publish request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &PublishError{Category: CategoryTransient, RawMessage: err.Error()}
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, &PublishError{Category: CategoryTransient, RawMessage: err.Error()}
	}

	if res.StatusCode != http.StatusOK {
		return nil, &PublishError{
			Category:   categoryFromStatus(res.StatusCode),
			RawMessage: string(body),
		}
	}

	decoded := publishResponseBody{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &PublishError{Category: CategoryTransient, RawMessage: err.Error()}
	}
	if decoded.ExternalPostId == "" {
		return nil, &PublishError{Category: CategoryTransient, RawMessage: "gateway returned empty post id: " + decoded.Error}
	}
	return &Result{ExternalPostId: decoded.ExternalPostId}, nil
}

func categoryFromStatus(status int) Category {
	switch status {
	case http.StatusTooManyRequests:
		return CategoryRateLimited
	case http.StatusNotFound, http.StatusGone, http.StatusForbidden:
		// The target post was deleted, hidden, or the author blocked us.
		return CategoryTargetGone
	case http.StatusUnprocessableEntity:
		return CategoryMediaUnusable
	default:
		return CategoryTransient
	}
}
