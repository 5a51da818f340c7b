package media

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	Logger "github.com/wandergrowth/leadmux/utils/log"
)

// Request carries what the media service needs to render a reply asset. The
// author hint personalizes voice/greeting in generated narration.
type Request struct {
	SourceText string
	Topic      string
	AuthorHint string
}

type Result struct {
	MediaReference string
}

// Generator produces a media reference for a reply. Generation may take tens
// of seconds; implementations must respect ctx.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
}

// UnusableMediaError marks media that can never be published: too small,
// download failed, encode failed. The publisher treats it as terminal for the
// draft instead of retrying.
type UnusableMediaError struct {
	Reason string
}

func (e *UnusableMediaError) Error() string {
	return "unusable media: " + e.Reason
}

// IsUnusableMedia reports whether err marks media as unrecoverably broken.
func IsUnusableMedia(err error) bool {
	var unusable *UnusableMediaError
	return errors.As(err, &unusable)
}

// Chain evaluates an ordered list of generators, returning the first
// success. Adding a new fallback source is a one-line edit of the list, not
// a new error-handling branch.
type Chain struct {
	generators []Generator
}

func NewChain(generators ...Generator) *Chain {
	return &Chain{generators: generators}
}

func (c *Chain) Generate(ctx context.Context, req Request) (*Result, error) {
	var lastErr error
	for _, generator := range c.generators {
		result, err := generator.Generate(ctx, req)
		if err == nil {
			return result, nil
		}
		// An unusable-media verdict is about the source post itself, no
		// other generator can fix that.
		if IsUnusableMedia(err) {
			return nil, err
		}
		Logger.Log.Warnf("media generator %s failed, trying next: %s", generator.Name(), err)
		lastErr = err
	}
	if lastErr == nil {
		return nil, errors.New("no media generator configured")
	}
	return nil, fmt.Errorf("all media generators failed, last error: %w", lastErr)
}
