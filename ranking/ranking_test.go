package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wandergrowth/leadmux/platform"
)

var rankNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngineAtTime(
		DefaultScoringWeights(),
		DefaultFilterConfig(),
		func() time.Time { return rankNow },
	)
}

func makePost(externalId string, content string, hoursOld float64, replies int) platform.Post {
	return platform.Post{
		Platform:     platform.TwitterPlatform,
		ExternalId:   externalId,
		AuthorHandle: "someone",
		Content:      content,
		CreatedAt:    rankNow.Add(-time.Duration(hoursOld * float64(time.Hour))),
		Replies:      replies,
	}
}

func TestRankScoresKnownPosts(t *testing.T) {
	engine := newTestEngine()

	// 100 - 20 (10h) + 20 (question) + 15 (recommend) - 20 (15 replies) = 95
	questionPost := makePost("1", "Any recommendations for Paris?", 10, 15)
	// 100 - 18 (9h) = 82
	plainPost := makePost("2", "Paris in October.", 9, 8)
	// 100 - 50 (capped) + 15 (help) + 15 (first time) - 40 (60 replies) = 40
	floodedPost := makePost("3", "Visiting for the first time, need help", 30, 60)

	candidates := engine.Rank([]platform.Post{plainPost, floodedPost, questionPost})

	require.Len(t, candidates, 3)
	assert.Equal(t, "1", candidates[0].ExternalId)
	assert.Equal(t, 95, candidates[0].Score)
	assert.Equal(t, "2", candidates[1].ExternalId)
	assert.Equal(t, 82, candidates[1].Score)
	assert.Equal(t, "3", candidates[2].ExternalId)
	assert.Equal(t, 40, candidates[2].Score)
}

func TestRankContentBonuses(t *testing.T) {
	engine := newTestEngine()

	// Fresh post, 8 replies so no reply adjustment. Base 100 plus every
	// content bonus: 20+15+15+10+15+10+15 = 200.
	post := makePost("1", "First time trip, need help and a recommendation: what does a 5 day itinerary cost on a budget?", 0, 8)

	candidates := engine.Rank([]platform.Post{post})
	require.Len(t, candidates, 1)
	assert.Equal(t, 200, candidates[0].Score)
}

func TestRankFollowerAdjustment(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		followers int
		expected  int
	}{
		{100, 115},    // small account bonus
		{700, 110},    // medium account bonus
		{10000, 100},  // no adjustment
		{60000, 85},   // large account penalty
		{200000, 75},  // huge account penalty
	}
	for _, c := range cases {
		post := makePost("1", "Paris in October.", 0, 8)
		post.AuthorFollowerCount = &c.followers

		candidates := engine.Rank([]platform.Post{post})
		require.Len(t, candidates, 1)
		assert.Equal(t, c.expected, candidates[0].Score, "followers=%d", c.followers)
	}
}

func TestRankRecencyMonotonicity(t *testing.T) {
	engine := newTestEngine()

	previous := 1 << 30
	for _, hours := range []float64{0, 1, 5, 10, 24, 25, 48, 100} {
		post := makePost("1", "Paris in October.", hours, 8)
		candidates := engine.Rank([]platform.Post{post})
		require.Len(t, candidates, 1)
		assert.LessOrEqual(t, candidates[0].Score, previous, "hours=%f", hours)
		previous = candidates[0].Score
	}
}

func TestRankZeroRepliesBeatSixty(t *testing.T) {
	engine := newTestEngine()

	quiet := makePost("1", "Paris in October.", 5, 0)
	flooded := makePost("2", "Paris in October.", 5, 60)

	candidates := engine.Rank([]platform.Post{quiet, flooded})
	require.Len(t, candidates, 2)
	assert.Equal(t, "1", candidates[0].ExternalId)
	assert.Greater(t, candidates[0].Score, candidates[1].Score)
}

func TestRankTieBreakOnRecency(t *testing.T) {
	engine := newTestEngine()

	older := makePost("old", "Paris in October.", 9, 8)
	newer := makePost("new", "Lyon in October..", 9, 8)
	// 12 minutes younger: decay 17.6 vs 18.0, both round to a score of 82.
	newer.CreatedAt = newer.CreatedAt.Add(12 * time.Minute)

	candidates := engine.Rank([]platform.Post{older, newer})
	require.Len(t, candidates, 2)
	// Decay is computed on float hours, both land on the same score.
	require.Equal(t, candidates[0].Score, candidates[1].Score)
	assert.Equal(t, "new", candidates[0].ExternalId)
}

func TestRankDedupsWithinBatch(t *testing.T) {
	engine := newTestEngine()

	post := makePost("1", "Paris in October.", 5, 0)
	candidates := engine.Rank([]platform.Post{post, post, post})
	assert.Len(t, candidates, 1)
}

func TestRankFilters(t *testing.T) {
	engine := newTestEngine()

	spam := makePost("1", "Use my promo code for Paris hotels", 1, 0)
	stuffed := makePost("2", "Paris #travel #paris #france #vacation #wanderlust #tourism", 1, 0)
	reply := makePost("3", "@someone totally agree about Paris", 1, 0)
	commercial := makePost("4", "What a lovely time to see Paris!", 1, 0)
	commercial.AuthorBio = "Official page of Paris Tours. Book now!"
	legit := makePost("5", "Paris in October.", 1, 0)

	candidates := engine.Rank([]platform.Post{spam, stuffed, reply, commercial, legit})
	require.Len(t, candidates, 1)
	assert.Equal(t, "5", candidates[0].ExternalId)
}

func TestRankScoresAreNotClamped(t *testing.T) {
	engine := newTestEngine()

	// 100 - 50 - 40 - 25 = -15
	hopeless := makePost("1", "Paris in October.", 100, 100)
	followers := 200000
	hopeless.AuthorFollowerCount = &followers

	candidates := engine.Rank([]platform.Post{hopeless})
	require.Len(t, candidates, 1)
	assert.Equal(t, -15, candidates[0].Score)
}
