package store

import (
	"time"

	"github.com/pkg/errors"
	"github.com/wandergrowth/leadmux/model"
)

var (
	// ErrDraftNotFound is returned when no draft matches the lookup.
	ErrDraftNotFound = errors.New("draft not found")
	// ErrDuplicateDraft is returned when an insert collides with the unique
	// original external id. Callers treat it as "already discovered".
	ErrDuplicateDraft = errors.New("draft already exists for external id")
)

// UpdateFields carries the optional columns written alongside a status
// transition. Nil fields are left untouched.
type UpdateFields struct {
	LastError         *string
	IncrementAttempts bool
	PublishedAt       *time.Time
	ExternalPostId    *string
	MediaReference    *string
}

// DraftStore is the only persistence surface the engine needs. Anything
// richer (full CRUD, pagination, free-text search) belongs to the dashboard
// layer, which is not part of this repo.
type DraftStore interface {
	// FindByExternalId looks a draft up by its dedup anchor.
	FindByExternalId(externalId string) (*model.Draft, error)

	// Insert persists a new draft. ErrDuplicateDraft on external-id collision.
	Insert(draft *model.Draft) error

	// UpdateStatus transitions one draft and writes the given fields.
	UpdateStatus(id string, status model.DraftStatus, fields UpdateFields) error

	// QueryTopEligible returns up to limit drafts in the given statuses with
	// score >= minScore, best score first.
	QueryTopEligible(minScore int, statuses []model.DraftStatus, limit int) ([]model.Draft, error)

	// DeleteStale removes drafts in the given statuses whose score is at most
	// maxScore and which were created before the cutoff. Returns the number
	// of rows removed. High-score and resolved drafts are never touched.
	DeleteStale(statuses []model.DraftStatus, maxScore int, olderThan time.Time) (int64, error)

	// CountCreatedSince / CountPublishedSince rebuild daily counters after a
	// restart when no status store is available.
	CountCreatedSince(t time.Time) (int64, error)
	CountPublishedSince(t time.Time) (int64, error)
}
