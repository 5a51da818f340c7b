package hunter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/wandergrowth/leadmux/model"
	"github.com/wandergrowth/leadmux/platform"
	"github.com/wandergrowth/leadmux/ranking"
	"github.com/wandergrowth/leadmux/scheduler"
	"github.com/wandergrowth/leadmux/store"
	Logger "github.com/wandergrowth/leadmux/utils/log"
	"gorm.io/datatypes"
)

// ErrHuntInProgress is returned by ForceHunt when a cycle is already
// running. Manual hunts are rejected, never queued.
var ErrHuntInProgress = errors.New("a hunt cycle is already in progress")

type Config struct {
	Keywords            []string
	MaxResultsPerSearch int
	DailyLimit          int
	CycleInterval       time.Duration
	// Fixed delay between keywords, to respect platform rate limits.
	KeywordDelay time.Duration
	// Stale pending drafts at or below StaleMaxScore older than
	// RetentionWindow are cleaned up every cycle.
	RetentionWindow time.Duration
	StaleMaxScore   int
}

// CycleStats is the per-cycle observability record, published on the event
// bus for the reporter.
type CycleStats struct {
	KeywordsSearched  int           `json:"keywords_searched"`
	CandidatesFound   int           `json:"candidates_found"`
	DraftsCreated     int           `json:"drafts_created"`
	DuplicatesSkipped int           `json:"duplicates_skipped"`
	SearchErrors      int           `json:"search_errors"`
	StaleDeleted      int64         `json:"stale_deleted"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Hunter is the lead discovery scheduler: every cycle it walks the keyword
// set across all configured platforms, ranks the results, and promotes new
// candidates into pending_review drafts up to the daily cap.
type Hunter struct {
	searchers []platform.Searcher
	store     store.DraftStore
	engine    *ranking.Engine
	drafter   ReplyDrafter
	cfg       Config
	state     *scheduler.State
	bus       *gochannel.GoChannel

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewHunter(
	searchers []platform.Searcher,
	draftStore store.DraftStore,
	engine *ranking.Engine,
	drafter ReplyDrafter,
	cfg Config,
	state *scheduler.State,
	bus *gochannel.GoChannel,
) *Hunter {
	return &Hunter{
		searchers: searchers,
		store:     draftStore,
		engine:    engine,
		drafter:   drafter,
		cfg:       cfg,
		state:     state,
		bus:       bus,
		now:       time.Now,
		sleep:     sleepWithContext,
	}
}

// Run drives hunt cycles on a fixed interval until ctx is cancelled. A fire
// that lands while the previous cycle is still running is a no-op.
func (h *Hunter) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := h.RunOnce(ctx); err != nil && !errors.Is(err, ErrHuntInProgress) {
				Logger.Log.Errorln("hunt cycle failed:", err)
			}
		}
	}
}

// ForceHunt is the manual, on-demand entry point. It runs a full cycle
// synchronously and returns ErrHuntInProgress when one is already running.
func (h *Hunter) ForceHunt(ctx context.Context) (*CycleStats, error) {
	return h.RunOnce(ctx)
}

// RunOnce executes one hunt cycle. The reentrancy lock is released in all
// cases including panics, so a broken cycle never wedges the scheduler.
func (h *Hunter) RunOnce(ctx context.Context) (stats *CycleStats, err error) {
	if !h.state.TryAcquire() {
		return nil, ErrHuntInProgress
	}
	defer h.state.Release()
	defer func() {
		if r := recover(); r != nil {
			Logger.Log.Errorln("hunt cycle panicked:", r)
			err = errors.Errorf("hunt cycle panicked: %v", r)
		}
	}()

	start := h.now()
	stats = &CycleStats{}

	// Storage maintenance first: stale low-score pending drafts are dead
	// weight nobody will ever publish.
	deleted, err := h.store.DeleteStale(
		[]model.DraftStatus{model.DraftStatusPendingReview},
		h.cfg.StaleMaxScore,
		start.Add(-h.cfg.RetentionWindow),
	)
	if err != nil {
		Logger.Log.Errorln("fail to delete stale drafts:", err)
	}
	stats.StaleDeleted = deleted

	h.state.RollDay()
	if h.state.QuotaExhausted() {
		Logger.Log.Infoln("daily hunt quota exhausted, skipping cycle")
		return stats, nil
	}

	for i, keyword := range h.cfg.Keywords {
		if i > 0 {
			h.sleep(ctx, h.cfg.KeywordDelay)
		}
		if ctx.Err() != nil {
			break
		}

		stats.KeywordsSearched++
		h.huntKeyword(ctx, keyword, stats)

		if h.state.QuotaExhausted() {
			Logger.Log.Infoln("daily hunt quota hit mid-cycle, stopping")
			break
		}
	}

	stats.Elapsed = h.now().Sub(start)
	h.publishStats(stats)
	Logger.Log.Infof(
		"hunt cycle done: %d keywords, %d candidates, %d drafts, %d duplicates, %d errors",
		stats.KeywordsSearched, stats.CandidatesFound, stats.DraftsCreated,
		stats.DuplicatesSkipped, stats.SearchErrors,
	)
	return stats, nil
}

// huntKeyword searches one keyword across all platforms and promotes the
// surviving candidates. A failing platform is counted and logged; the rest of
// the cycle goes on.
func (h *Hunter) huntKeyword(ctx context.Context, keyword string, stats *CycleStats) {
	for _, searcher := range h.searchers {
		posts, err := searcher.Search(ctx, keyword, h.cfg.MaxResultsPerSearch)
		if err != nil {
			stats.SearchErrors++
			if platform.IsRateLimit(err) {
				Logger.Log.Warnf("%s rate limited on keyword %q", searcher.Platform(), keyword)
			} else {
				Logger.Log.Errorf("%s search failed on keyword %q: %s", searcher.Platform(), keyword, err)
			}
			continue
		}

		candidates := h.engine.Rank(posts)
		stats.CandidatesFound += len(candidates)

		for i := range candidates {
			if h.state.QuotaExhausted() {
				return
			}
			h.promote(&candidates[i], keyword, stats)
		}
	}
}

// promote turns one candidate into a pending_review draft unless the post
// was already discovered.
func (h *Hunter) promote(candidate *ranking.Candidate, keyword string, stats *CycleStats) {
	if _, err := h.store.FindByExternalId(candidate.ExternalId); err == nil {
		stats.DuplicatesSkipped++
		return
	} else if !errors.Is(err, store.ErrDraftNotFound) {
		Logger.Log.Errorln("fail to check for duplicate draft:", err)
		return
	}

	draft, err := h.buildDraft(candidate, keyword)
	if err != nil {
		Logger.Log.Errorln("fail to build draft:", err)
		return
	}

	if err := h.store.Insert(draft); err != nil {
		// Lost the race against another discovery of the same post, the
		// unique index makes this a duplicate, not an error.
		if errors.Is(err, store.ErrDuplicateDraft) {
			stats.DuplicatesSkipped++
			return
		}
		Logger.Log.Errorln("fail to insert draft:", err)
		return
	}

	stats.DraftsCreated++
	h.state.Increment()
}

func (h *Hunter) buildDraft(candidate *ranking.Candidate, keyword string) (*model.Draft, error) {
	metrics, err := metricsEnvelopeFor(candidate)
	if err != nil {
		return nil, err
	}

	return &model.Draft{
		Id:                   uuid.New().String(),
		CreatedAt:            h.now(),
		OriginalExternalId:   candidate.ExternalId,
		SourcePlatform:       candidate.Platform,
		OriginalAuthorHandle: candidate.AuthorHandle,
		OriginalText:         candidate.Content,
		DetectedTopic:        keyword,
		Score:                candidate.Score,
		DraftReplyText:       h.drafter.DraftReply(candidate, keyword),
		Status:               model.DraftStatusPendingReview,
		PlatformMetrics:      metrics,
	}, nil
}

func metricsEnvelopeFor(candidate *ranking.Candidate) (datatypes.JSON, error) {
	envelope := &model.MetricsEnvelope{Platform: candidate.Platform}
	switch candidate.Platform {
	case platform.TwitterPlatform:
		twitter := &model.TwitterMetrics{
			Likes:    candidate.Metrics.Likes,
			Replies:  candidate.Metrics.Replies,
			Retweets: candidate.Metrics.Shares,
			Views:    candidate.Metrics.Views,
		}
		if candidate.AuthorFollowerCount != nil {
			twitter.AuthorFollowers = *candidate.AuthorFollowerCount
		}
		envelope.Twitter = twitter
	case platform.RedditPlatform:
		envelope.Reddit = &model.RedditMetrics{
			Upvotes:  candidate.Metrics.Likes,
			Comments: candidate.Metrics.Replies,
		}
	}
	return envelope.ToJSON()
}

func (h *Hunter) publishStats(stats *CycleStats) {
	if h.bus == nil {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		Logger.Log.Errorln("fail to marshal cycle stats:", err)
		return
	}
	if err := h.bus.Publish(scheduler.TopicHuntCycle, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		Logger.Log.Errorln("fail to publish cycle stats:", err)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
