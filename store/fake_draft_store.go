package store

import (
	"sort"
	"sync"
	"time"

	"github.com/wandergrowth/leadmux/model"
)

// FakeDraftStore is an in-memory DraftStore for tests. It mirrors the
// semantics of GormDraftStore including the unique external id constraint.
type FakeDraftStore struct {
	m      sync.Mutex
	drafts map[string]*model.Draft

	// DeleteStaleCalls records the cutoffs maintenance ran with, for
	// assertions on the hunter's cleanup behavior.
	DeleteStaleCalls []time.Time
}

func NewFakeDraftStore() *FakeDraftStore {
	return &FakeDraftStore{drafts: make(map[string]*model.Draft)}
}

func (s *FakeDraftStore) FindByExternalId(externalId string) (*model.Draft, error) {
	s.m.Lock()
	defer s.m.Unlock()
	for _, draft := range s.drafts {
		if draft.OriginalExternalId == externalId {
			copied := *draft
			return &copied, nil
		}
	}
	return nil, ErrDraftNotFound
}

func (s *FakeDraftStore) Insert(draft *model.Draft) error {
	s.m.Lock()
	defer s.m.Unlock()
	for _, existing := range s.drafts {
		if existing.OriginalExternalId == draft.OriginalExternalId {
			return ErrDuplicateDraft
		}
	}
	copied := *draft
	s.drafts[draft.Id] = &copied
	return nil
}

func (s *FakeDraftStore) UpdateStatus(id string, status model.DraftStatus, fields UpdateFields) error {
	s.m.Lock()
	defer s.m.Unlock()
	draft, ok := s.drafts[id]
	if !ok {
		return ErrDraftNotFound
	}
	draft.Status = status
	if fields.LastError != nil {
		draft.LastError = fields.LastError
	}
	if fields.IncrementAttempts {
		draft.PublishAttempts++
	}
	if fields.PublishedAt != nil {
		draft.PublishedAt = fields.PublishedAt
	}
	if fields.ExternalPostId != nil {
		draft.ExternalPostId = fields.ExternalPostId
	}
	if fields.MediaReference != nil {
		draft.MediaReference = *fields.MediaReference
	}
	return nil
}

func (s *FakeDraftStore) QueryTopEligible(minScore int, statuses []model.DraftStatus, limit int) ([]model.Draft, error) {
	s.m.Lock()
	defer s.m.Unlock()

	eligible := []model.Draft{}
	for _, draft := range s.drafts {
		if draft.Score < minScore {
			continue
		}
		if !statusIn(draft.Status, statuses) {
			continue
		}
		eligible = append(eligible, *draft)
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (s *FakeDraftStore) DeleteStale(statuses []model.DraftStatus, maxScore int, olderThan time.Time) (int64, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.DeleteStaleCalls = append(s.DeleteStaleCalls, olderThan)

	var removed int64
	for id, draft := range s.drafts {
		if statusIn(draft.Status, statuses) && draft.Score <= maxScore && draft.CreatedAt.Before(olderThan) {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed, nil
}

func (s *FakeDraftStore) CountCreatedSince(t time.Time) (int64, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var count int64
	for _, draft := range s.drafts {
		if !draft.CreatedAt.Before(t) {
			count++
		}
	}
	return count, nil
}

func (s *FakeDraftStore) CountPublishedSince(t time.Time) (int64, error) {
	s.m.Lock()
	defer s.m.Unlock()
	var count int64
	for _, draft := range s.drafts {
		if draft.Status == model.DraftStatusPublished && draft.PublishedAt != nil && !draft.PublishedAt.Before(t) {
			count++
		}
	}
	return count, nil
}

// Get returns the stored draft by id, or nil. Test helper.
func (s *FakeDraftStore) Get(id string) *model.Draft {
	s.m.Lock()
	defer s.m.Unlock()
	draft, ok := s.drafts[id]
	if !ok {
		return nil
	}
	copied := *draft
	return &copied
}

// All returns every stored draft. Test helper.
func (s *FakeDraftStore) All() []model.Draft {
	s.m.Lock()
	defer s.m.Unlock()
	all := []model.Draft{}
	for _, draft := range s.drafts {
		all = append(all, *draft)
	}
	return all
}

func statusIn(status model.DraftStatus, statuses []model.DraftStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
