package media

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Media rendering regularly takes tens of seconds for video + narration.
const generationTimeout = 120 * time.Second

// HTTPGenerator calls the external media generation service.
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
}

func NewHTTPGenerator(endpoint string) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: generationTimeout},
	}
}

func (g *HTTPGenerator) Name() string {
	return "http"
}

type generateRequestBody struct {
	SourceText string `json:"source_text"`
	Topic      string `json:"topic"`
	AuthorHint string `json:"author_hint"`
}

type generateResponseBody struct {
	MediaReference string `json:"media_reference"`
	Error          string `json:"error"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	payload, err := json.Marshal(generateRequestBody{
		SourceText: req.SourceText,
		Topic:      req.Topic,
		AuthorHint: req.AuthorHint,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to marshal media request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "fail to build media request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "fail to call media service")
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "fail to read media response")
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("media service returned %d: %s", res.StatusCode, string(body))
	}

	decoded := generateResponseBody{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Wrap(err, "fail to decode media response")
	}
	// The service reports source assets it cannot work with (too small,
	// download failed, encode failed) as a structured error.
	if decoded.Error != "" {
		return nil, &UnusableMediaError{Reason: decoded.Error}
	}
	if decoded.MediaReference == "" {
		return nil, errors.New("media service returned empty reference")
	}
	return &Result{MediaReference: decoded.MediaReference}, nil
}
