package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/wandergrowth/leadmux/adapter"
	"github.com/wandergrowth/leadmux/media"
	"github.com/wandergrowth/leadmux/model"
	"github.com/wandergrowth/leadmux/scheduler"
	"github.com/wandergrowth/leadmux/store"
	Logger "github.com/wandergrowth/leadmux/utils/log"
)

// ErrPublishInProgress is returned when a cycle fires while the previous one
// is still publishing. The fire is skipped, not queued.
var ErrPublishInProgress = errors.New("a publish cycle is already in progress")

// StatusToggle is the external switch gating autonomous publishing.
type StatusToggle interface {
	AutopublishEnabled() (bool, error)
}

// StaticToggle is a fixed toggle, used in tests and when no redis store is
// configured.
type StaticToggle bool

func (t StaticToggle) AutopublishEnabled() (bool, error) {
	return bool(t), nil
}

type Config struct {
	DailyLimit     int
	MinInterval    time.Duration
	ScoreThreshold int
	CycleInterval  time.Duration
	// Statuses eligible for autonomous selection. pending_retry drafts
	// re-enter the same score-ordered ranking as pending_review ones: a
	// transient failure says nothing about lead quality.
	Statuses []model.DraftStatus
}

// Outcome of one publish cycle, for stats and tests.
type Outcome string

const (
	OutcomeIdle        Outcome = "idle"
	OutcomePublished   Outcome = "published"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
	OutcomeRetryLater  Outcome = "retry_later"
)

// CycleResult is published on the event bus after every non-idle cycle.
type CycleResult struct {
	Outcome        Outcome          `json:"outcome"`
	DraftId        string           `json:"draft_id,omitempty"`
	Score          int              `json:"score,omitempty"`
	ExternalPostId string           `json:"external_post_id,omitempty"`
	Category       adapter.Category `json:"category,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// Publisher is the autonomous publish gate: each cycle it selects the single
// best eligible draft, paces publishes by a minimum interval and a daily cap,
// and classifies failures into retry/skip/fatal outcomes.
type Publisher struct {
	store   store.DraftStore
	chain   *media.Chain
	adapter adapter.PublishAdapter
	toggle  StatusToggle
	cfg     Config
	state   *scheduler.State
	bus     *gochannel.GoChannel

	now func() time.Time
}

func NewPublisher(
	draftStore store.DraftStore,
	chain *media.Chain,
	publishAdapter adapter.PublishAdapter,
	toggle StatusToggle,
	cfg Config,
	state *scheduler.State,
	bus *gochannel.GoChannel,
) *Publisher {
	if len(cfg.Statuses) == 0 {
		cfg.Statuses = []model.DraftStatus{
			model.DraftStatusPendingReview,
			model.DraftStatusPendingRetry,
		}
	}
	return &Publisher{
		store:   draftStore,
		chain:   chain,
		adapter: publishAdapter,
		toggle:  toggle,
		cfg:     cfg,
		state:   state,
		bus:     bus,
		now:     time.Now,
	}
}

// Run drives publish cycles on a fixed interval until ctx is cancelled,
// independent of the hunter's timer.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, ErrPublishInProgress) {
				Logger.Log.Errorln("publish cycle failed:", err)
			}
		}
	}
}

// RunOnce executes one publish cycle. The publishing lock is released in all
// cases, success, failure, or panic.
func (p *Publisher) RunOnce(ctx context.Context) (result *CycleResult, err error) {
	if !p.state.TryAcquire() {
		return nil, ErrPublishInProgress
	}
	defer p.state.Release()
	defer func() {
		if r := recover(); r != nil {
			Logger.Log.Errorln("publish cycle panicked:", r)
			err = errors.Errorf("publish cycle panicked: %v", r)
		}
	}()

	// Eligibility gate. Ending here silently is the expected steady state,
	// not an error.
	if !p.eligible() {
		return &CycleResult{Outcome: OutcomeIdle}, nil
	}

	drafts, err := p.store.QueryTopEligible(p.cfg.ScoreThreshold, p.cfg.Statuses, 1)
	if err != nil {
		return nil, errors.Wrap(err, "fail to select draft")
	}
	if len(drafts) == 0 {
		return &CycleResult{Outcome: OutcomeIdle}, nil
	}

	result = p.publishDraft(ctx, &drafts[0])
	p.publishResult(result)
	return result, nil
}

// eligible evaluates the gate at the top of every cycle before any work is
// done.
func (p *Publisher) eligible() bool {
	enabled, err := p.toggle.AutopublishEnabled()
	if err != nil {
		Logger.Log.Warnln("fail to read autopublish toggle, treating as disabled:", err)
		return false
	}
	if !enabled {
		return false
	}

	p.state.RollDay()
	if p.state.QuotaExhausted() {
		return false
	}

	if elapsed, ok := p.state.SinceLastAction(); ok && elapsed < p.cfg.MinInterval {
		return false
	}
	return true
}

func (p *Publisher) publishDraft(ctx context.Context, draft *model.Draft) *CycleResult {
	mediaRef, mediaErr := p.resolveMedia(ctx, draft)
	if mediaErr != nil {
		return p.markFailed(draft, mediaErr)
	}

	res, err := p.adapter.Publish(ctx, adapter.Request{
		ReplyText:           draft.DraftReplyText,
		MediaReference:      mediaRef,
		InReplyToExternalId: draft.OriginalExternalId,
	})
	if err != nil {
		return p.classifyFailure(draft, err)
	}

	now := p.now()
	if err := p.store.UpdateStatus(draft.Id, model.DraftStatusPublished, store.UpdateFields{
		PublishedAt:    &now,
		ExternalPostId: &res.ExternalPostId,
		MediaReference: &mediaRef,
	}); err != nil {
		// The post is live but the store write failed. Surface loudly, a
		// human needs to resolve the divergence.
		Logger.Log.Errorln("draft published but status update failed:", err)
	}
	p.state.MarkAction()
	p.state.Increment()

	Logger.Log.Infof("published draft %s (score %d) as %s", draft.Id, draft.Score, res.ExternalPostId)
	return &CycleResult{
		Outcome:        OutcomePublished,
		DraftId:        draft.Id,
		Score:          draft.Score,
		ExternalPostId: res.ExternalPostId,
	}
}

// resolveMedia runs the generation chain, degrading to the static media
// reference already on the draft when the richer path fails. An
// unusable-media verdict comes back as an error and is terminal.
func (p *Publisher) resolveMedia(ctx context.Context, draft *model.Draft) (string, error) {
	if p.chain == nil {
		return draft.MediaReference, nil
	}
	res, err := p.chain.Generate(ctx, media.Request{
		SourceText: draft.OriginalText,
		Topic:      draft.DetectedTopic,
		AuthorHint: draft.OriginalAuthorHandle,
	})
	if err == nil {
		return res.MediaReference, nil
	}
	if media.IsUnusableMedia(err) {
		return "", err
	}
	Logger.Log.Warnln("media generation failed, publishing with draft media:", err)
	return draft.MediaReference, nil
}

func (p *Publisher) classifyFailure(draft *model.Draft, err error) *CycleResult {
	category := adapter.ClassifyError(err)
	message := err.Error()

	switch category {
	case adapter.CategoryRateLimited:
		// Leave the draft untouched and treat it as if a publish just
		// happened, so the next attempt is naturally delayed by the normal
		// interval.
		p.state.MarkAction()
		Logger.Log.Warnln("publish rate limited, will retry draft", draft.Id, "next eligible cycle")
		return &CycleResult{
			Outcome:  OutcomeRateLimited,
			DraftId:  draft.Id,
			Score:    draft.Score,
			Category: category,
			Error:    message,
		}

	case adapter.CategoryMediaUnusable:
		return p.markFailed(draft, err)

	default:
		if updateErr := p.store.UpdateStatus(draft.Id, model.DraftStatusPendingRetry, store.UpdateFields{
			LastError:         &message,
			IncrementAttempts: true,
		}); updateErr != nil {
			Logger.Log.Errorln("fail to mark draft for retry:", updateErr)
		}
		Logger.Log.Warnf("transient publish failure for draft %s: %s", draft.Id, message)
		return &CycleResult{
			Outcome:  OutcomeRetryLater,
			DraftId:  draft.Id,
			Score:    draft.Score,
			Category: category,
			Error:    message,
		}
	}
}

func (p *Publisher) markFailed(draft *model.Draft, err error) *CycleResult {
	message := err.Error()
	if updateErr := p.store.UpdateStatus(draft.Id, model.DraftStatusFailed, store.UpdateFields{
		LastError: &message,
	}); updateErr != nil {
		Logger.Log.Errorln("fail to mark draft as failed:", updateErr)
	}
	Logger.Log.Errorf("draft %s failed terminally: %s", draft.Id, message)
	return &CycleResult{
		Outcome:  OutcomeFailed,
		DraftId:  draft.Id,
		Score:    draft.Score,
		Category: adapter.CategoryMediaUnusable,
		Error:    message,
	}
}

func (p *Publisher) publishResult(result *CycleResult) {
	if p.bus == nil || result.Outcome == OutcomeIdle {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		Logger.Log.Errorln("fail to marshal cycle result:", err)
		return
	}
	if err := p.bus.Publish(scheduler.TopicPublishResult, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		Logger.Log.Errorln("fail to publish cycle result:", err)
	}
}
