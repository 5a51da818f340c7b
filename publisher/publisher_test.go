package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wandergrowth/leadmux/adapter"
	"github.com/wandergrowth/leadmux/media"
	"github.com/wandergrowth/leadmux/model"
	"github.com/wandergrowth/leadmux/scheduler"
	"github.com/wandergrowth/leadmux/store"
)

var publishNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

// fakeAdapter replays scripted outcomes and records every request.
type fakeAdapter struct {
	errs     []error
	requests []adapter.Request
	calls    int
}

func (f *fakeAdapter) Publish(ctx context.Context, req adapter.Request) (*adapter.Result, error) {
	f.requests = append(f.requests, req)
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &adapter.Result{ExternalPostId: "ext-post-1"}, nil
}

type fakeGenerator struct {
	result *media.Result
	err    error
	calls  int
}

func (f *fakeGenerator) Name() string {
	return "fake"
}

func (f *fakeGenerator) Generate(ctx context.Context, req media.Request) (*media.Result, error) {
	f.calls++
	return f.result, f.err
}

type testPublisher struct {
	publisher *Publisher
	store     *store.FakeDraftStore
	state     *scheduler.State
	adapter   *fakeAdapter
	clock     *time.Time
}

func newTestPublisher(cfg Config, chain *media.Chain, publishAdapter *fakeAdapter) *testPublisher {
	current := publishNow
	now := func() time.Time { return current }

	if cfg.DailyLimit == 0 {
		cfg.DailyLimit = 20
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 30 * time.Minute
	}
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = 90
	}

	draftStore := store.NewFakeDraftStore()
	state := scheduler.NewStateAtTime(cfg.DailyLimit, now)

	p := NewPublisher(draftStore, chain, publishAdapter, StaticToggle(true), cfg, state, nil)
	p.now = now

	return &testPublisher{
		publisher: p,
		store:     draftStore,
		state:     state,
		adapter:   publishAdapter,
		clock:     &current,
	}
}

func (tp *testPublisher) addDraft(t *testing.T, externalId string, score int, status model.DraftStatus) *model.Draft {
	t.Helper()
	draft := &model.Draft{
		Id:                 uuid.New().String(),
		CreatedAt:          publishNow.Add(-1 * time.Hour),
		OriginalExternalId: externalId,
		SourcePlatform:     "twitter",
		OriginalText:       "original post",
		DetectedTopic:      "Paris",
		Score:              score,
		DraftReplyText:     "draft reply",
		MediaReference:     "static-ref",
		Status:             status,
	}
	require.NoError(t, tp.store.Insert(draft))
	return draft
}

func TestPublisherSelectsBestEligibleDraft(t *testing.T) {
	tp := newTestPublisher(Config{}, nil, &fakeAdapter{})
	best := tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)
	second := tp.addDraft(t, "ext-92", 92, model.DraftStatusPendingReview)
	tp.addDraft(t, "ext-60", 60, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, result.Outcome)
	assert.Equal(t, best.Id, result.DraftId)

	published := tp.store.Get(best.Id)
	assert.Equal(t, model.DraftStatusPublished, published.Status)
	require.NotNil(t, published.ExternalPostId)
	assert.Equal(t, "ext-post-1", *published.ExternalPostId)
	assert.NotNil(t, published.PublishedAt)
	assert.Equal(t, 1, tp.state.DailyCount())

	// Next cycle, interval satisfied: the 92 is next, the 60 never
	// clears the threshold.
	*tp.clock = tp.clock.Add(31 * time.Minute)
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, result.Outcome)
	assert.Equal(t, second.Id, result.DraftId)

	*tp.clock = tp.clock.Add(31 * time.Minute)
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, result.Outcome)
}

func TestPublisherThresholdGate(t *testing.T) {
	tp := newTestPublisher(Config{ScoreThreshold: 90}, nil, &fakeAdapter{})
	tp.addDraft(t, "ext-89", 89, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, result.Outcome)
	assert.Zero(t, tp.adapter.calls)
}

func TestPublisherPacing(t *testing.T) {
	tp := newTestPublisher(Config{MinInterval: 30 * time.Minute}, nil, &fakeAdapter{})
	tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)
	tp.addDraft(t, "ext-92", 92, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, result.Outcome)

	// A timer fire right after publishes nothing.
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, result.Outcome)

	// Still inside the window.
	*tp.clock = tp.clock.Add(29 * time.Minute)
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, result.Outcome)

	// Window elapsed.
	*tp.clock = tp.clock.Add(1 * time.Minute)
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, result.Outcome)
	assert.Equal(t, 2, tp.adapter.calls)
}

func TestPublisherToggleDisabled(t *testing.T) {
	tp := newTestPublisher(Config{}, nil, &fakeAdapter{})
	tp.publisher.toggle = StaticToggle(false)
	tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, result.Outcome)
	assert.Zero(t, tp.adapter.calls)
}

func TestPublisherDailyQuota(t *testing.T) {
	tp := newTestPublisher(Config{DailyLimit: 1, MinInterval: time.Minute}, nil, &fakeAdapter{})
	tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)
	tp.addDraft(t, "ext-92", 92, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, result.Outcome)

	*tp.clock = tp.clock.Add(2 * time.Minute)
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, result.Outcome)

	// The quota frees up on the next calendar day.
	*tp.clock = tp.clock.AddDate(0, 0, 1)
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, result.Outcome)
}

func TestPublisherRateLimitLeavesDraftUntouched(t *testing.T) {
	publishAdapter := &fakeAdapter{errs: []error{
		&adapter.PublishError{Category: adapter.CategoryRateLimited, RawMessage: "429"},
	}}
	tp := newTestPublisher(Config{}, nil, publishAdapter)
	draft := tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRateLimited, result.Outcome)

	// Status and attempts are untouched, but pacing advances as if a
	// publish just happened.
	stored := tp.store.Get(draft.Id)
	assert.Equal(t, model.DraftStatusPendingReview, stored.Status)
	assert.Equal(t, 0, stored.PublishAttempts)
	assert.Nil(t, stored.LastError)
	_, ok := tp.state.SinceLastAction()
	assert.True(t, ok)
	assert.Equal(t, 0, tp.state.DailyCount())

	// The same draft is retried after the normal interval.
	*tp.clock = tp.clock.Add(31 * time.Minute)
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, result.Outcome)
	assert.Equal(t, draft.Id, result.DraftId)
}

func TestPublisherTransientFailureMarksRetry(t *testing.T) {
	publishAdapter := &fakeAdapter{errs: []error{
		&adapter.PublishError{Category: adapter.CategoryTransient, RawMessage: "network blip"},
	}}
	tp := newTestPublisher(Config{}, nil, publishAdapter)
	draft := tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryLater, result.Outcome)

	stored := tp.store.Get(draft.Id)
	assert.Equal(t, model.DraftStatusPendingRetry, stored.Status)
	assert.Equal(t, 1, stored.PublishAttempts)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "network blip")

	// pending_retry re-enters the same eligibility ranking. No pacing
	// penalty for a transient failure, the next cycle retries directly.
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, result.Outcome)
	assert.Equal(t, draft.Id, result.DraftId)
}

func TestPublisherUnusableMediaIsTerminal(t *testing.T) {
	chain := media.NewChain(&fakeGenerator{err: &media.UnusableMediaError{Reason: "media too small"}})
	tp := newTestPublisher(Config{}, chain, &fakeAdapter{})
	draft := tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Zero(t, tp.adapter.calls)

	stored := tp.store.Get(draft.Id)
	assert.Equal(t, model.DraftStatusFailed, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "media too small")

	// Terminal drafts never come back.
	*tp.clock = tp.clock.Add(31 * time.Minute)
	result, err = tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, result.Outcome)
}

func TestPublisherDegradesToDraftMediaOnGenerationFailure(t *testing.T) {
	chain := media.NewChain(&fakeGenerator{err: errors.New("renderer offline")})
	tp := newTestPublisher(Config{}, chain, &fakeAdapter{})
	tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePublished, result.Outcome)

	require.Len(t, tp.adapter.requests, 1)
	assert.Equal(t, "static-ref", tp.adapter.requests[0].MediaReference)
}

func TestPublisherUsesGeneratedMedia(t *testing.T) {
	chain := media.NewChain(&fakeGenerator{result: &media.Result{MediaReference: "video-42"}})
	tp := newTestPublisher(Config{}, chain, &fakeAdapter{})
	draft := tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)

	result, err := tp.publisher.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomePublished, result.Outcome)

	require.Len(t, tp.adapter.requests, 1)
	assert.Equal(t, "video-42", tp.adapter.requests[0].MediaReference)
	assert.Equal(t, draft.OriginalExternalId, tp.adapter.requests[0].InReplyToExternalId)
	// The reference that actually shipped is recorded on the draft.
	assert.Equal(t, "video-42", tp.store.Get(draft.Id).MediaReference)
}

func TestPublisherLockSkipsOverlappingCycle(t *testing.T) {
	tp := newTestPublisher(Config{}, nil, &fakeAdapter{})
	tp.addDraft(t, "ext-95", 95, model.DraftStatusPendingReview)

	require.True(t, tp.state.TryAcquire())
	defer tp.state.Release()

	_, err := tp.publisher.RunOnce(context.Background())
	assert.True(t, errors.Is(err, ErrPublishInProgress))
	assert.Zero(t, tp.adapter.calls)
}
