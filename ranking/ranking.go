package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/wandergrowth/leadmux/platform"
	"github.com/wandergrowth/leadmux/utils"
	Logger "github.com/wandergrowth/leadmux/utils/log"
)

// RawMetrics is the engagement snapshot a candidate was scored against.
type RawMetrics struct {
	Likes   int
	Replies int
	Shares  int
	Views   int
}

// Candidate is a ranked, not-yet-persisted search result. It only becomes a
// draft if it survives deduplication in the hunter.
type Candidate struct {
	Platform            string
	ExternalId          string
	AuthorHandle        string
	AuthorDisplayName   string
	AuthorBio           string
	AuthorFollowerCount *int
	Content             string
	CreatedAt           time.Time
	Metrics             RawMetrics
	Score               int
}

// Engine filters raw platform posts and scores the survivors. Scoring is
// deterministic, purely a function of content + metadata, and used only for
// relative ranking: scores are not clamped and may exceed 100 or go negative.
type Engine struct {
	weights ScoringWeights
	filters FilterConfig
	now     func() time.Time
}

func NewEngine(weights ScoringWeights, filters FilterConfig) *Engine {
	return &Engine{
		weights: weights,
		filters: filters,
		now:     time.Now,
	}
}

// NewEngineAtTime is NewEngine with an injected clock, for tests.
func NewEngineAtTime(weights ScoringWeights, filters FilterConfig, now func() time.Time) *Engine {
	engine := NewEngine(weights, filters)
	engine.now = now
	return engine
}

// Rank turns raw search results into candidates sorted by descending score,
// deduplicated by external id within the batch. Rejected posts are dropped,
// not scored.
func (e *Engine) Rank(posts []platform.Post) []Candidate {
	seen := map[string]bool{}
	candidates := []Candidate{}
	for i := range posts {
		post := &posts[i]
		if seen[post.ExternalId] {
			continue
		}
		seen[post.ExternalId] = true

		if reason := e.rejectReason(post); reason != "" {
			Logger.Log.Debugln("reject post", post.ExternalId, ":", reason)
			continue
		}

		candidate := Candidate{}
		if err := copier.Copy(&candidate, post); err != nil {
			Logger.Log.Errorln("fail to copy post into candidate:", err)
			continue
		}
		candidate.Metrics = RawMetrics{
			Likes:   post.Likes,
			Replies: post.Replies,
			Shares:  post.Shares,
			Views:   post.Views,
		}
		candidate.Score = e.score(post)
		candidates = append(candidates, candidate)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		// Tie break on recency, most recent first.
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return candidates
}

// rejectReason returns a non-empty reason iff the post should be dropped
// before scoring.
func (e *Engine) rejectReason(post *platform.Post) string {
	if utils.ContainsAnyFold(post.Content, e.filters.SpamKeywords) {
		return "spam keyword"
	}
	if strings.Count(post.Content, "#") > e.filters.MaxHashtags {
		return "hashtag stuffing"
	}
	// A body starting with an at-mention is itself a reply, not an original
	// post worth engaging with.
	if strings.HasPrefix(strings.TrimSpace(post.Content), "@") {
		return "reply post"
	}
	authorIdentity := post.AuthorHandle + " " + post.AuthorDisplayName + " " + post.AuthorBio
	if utils.ContainsAnyFold(authorIdentity, e.filters.CommercialKeywords) {
		return "commercial author"
	}
	return ""
}

func (e *Engine) score(post *platform.Post) int {
	w := e.weights
	score := float64(w.Base)

	hoursSinceCreation := e.now().Sub(post.CreatedAt).Hours()
	if hoursSinceCreation < 0 {
		hoursSinceCreation = 0
	}
	score -= math.Min(w.RecencyDecayCap, hoursSinceCreation*w.RecencyDecayPerHour)

	content := strings.ToLower(post.Content)
	if strings.Contains(content, "?") {
		score += float64(w.QuestionBonus)
	}
	if strings.Contains(content, "recommend") || strings.Contains(content, "suggestion") {
		score += float64(w.RecommendBonus)
	}
	if strings.Contains(content, "help") || strings.Contains(content, "advice") {
		score += float64(w.HelpBonus)
	}
	if strings.Contains(content, "plan") || strings.Contains(content, "trip") {
		score += float64(w.PlanBonus)
	}
	if strings.Contains(content, "itinerary") {
		score += float64(w.ItineraryBonus)
	}
	if strings.Contains(content, "budget") || strings.Contains(content, "cost") {
		score += float64(w.BudgetBonus)
	}
	if strings.Contains(content, "first time") {
		score += float64(w.FirstTimeBonus)
	}

	score += float64(replyCountAdjustment(post.Replies, w))

	if post.AuthorFollowerCount != nil {
		score += float64(followerCountAdjustment(*post.AuthorFollowerCount, w))
	}

	return int(math.Round(score))
}

// replyCountAdjustment rewards first-mover opportunities and penalizes
// crowded threads.
func replyCountAdjustment(replies int, w ScoringWeights) int {
	switch {
	case replies == 0:
		return w.NoReplyBonus
	case replies <= 2:
		return w.FewReplyBonus
	case replies <= 5:
		return w.SomeReplyBonus
	case replies <= 10:
		return 0
	case replies <= 50:
		return w.ManyReplyPenalty
	default:
		return w.FloodedReplyPenalty
	}
}

// followerCountAdjustment favors individuals over large accounts, which
// rarely read their replies.
func followerCountAdjustment(followers int, w ScoringWeights) int {
	switch {
	case followers > w.HugeFollowerThreshold:
		return w.HugeFollowerPenalty
	case followers > w.LargeFollowerThreshold:
		return w.LargeFollowerPenalty
	case followers < w.SmallFollowerThreshold:
		return w.SmallFollowerBonus
	case followers < w.MediumFollowerThreshold:
		return w.MediumFollowerBonus
	default:
		return 0
	}
}
