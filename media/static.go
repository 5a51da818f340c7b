package media

import (
	"context"

	"github.com/pkg/errors"
)

// StaticImageGenerator is the lowest-fidelity fallback: it always "generates"
// a pre-uploaded stock image reference. Placed last in the chain it
// guarantees a publish never blocks on media.
type StaticImageGenerator struct {
	Reference string
}

func (g *StaticImageGenerator) Name() string {
	return "static"
}

func (g *StaticImageGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if g.Reference == "" {
		return nil, errors.New("no static image reference configured")
	}
	return &Result{MediaReference: g.Reference}, nil
}
