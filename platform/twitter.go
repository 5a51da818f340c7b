package platform

import (
	"context"
	"strings"
	"sync"

	twitterscraper "github.com/n0madic/twitter-scraper"
	"github.com/pkg/errors"
	Logger "github.com/wandergrowth/leadmux/utils/log"
)

// TwitterSearcher finds recent tweets matching a query through the scraper
// API. Follower counts don't come back on search results, so author profiles
// are looked up separately and cached for the process lifetime.
type TwitterSearcher struct {
	scraper *twitterscraper.Scraper

	m        sync.Mutex
	profiles map[string]*twitterscraper.Profile
}

func NewTwitterSearcher() *TwitterSearcher {
	return &TwitterSearcher{
		scraper:  twitterscraper.New(),
		profiles: make(map[string]*twitterscraper.Profile),
	}
}

func (t *TwitterSearcher) Platform() string {
	return TwitterPlatform
}

func (t *TwitterSearcher) Search(ctx context.Context, query string, maxResults int) ([]Post, error) {
	// Retweets are never lead candidates, drop them at the query level.
	posts := []Post{}
	for result := range t.scraper.SearchTweets(ctx, query+" -filter:retweets", maxResults) {
		if result.Error != nil {
			return nil, translateTwitterError(result.Error)
		}

		post := Post{
			Platform:     TwitterPlatform,
			ExternalId:   result.ID,
			AuthorHandle: result.Username,
			Content:      result.Text,
			CreatedAt:    result.TimeParsed,
			Likes:        result.Likes,
			Replies:      result.Replies,
			Shares:       result.Retweets,
		}

		if profile := t.lookupProfile(result.Username); profile != nil {
			followers := profile.FollowersCount
			post.AuthorFollowerCount = &followers
			post.AuthorDisplayName = profile.Name
			post.AuthorBio = profile.Biography
		}

		posts = append(posts, post)
	}
	return posts, nil
}

// lookupProfile fetches the author profile, returning nil when the lookup
// fails. A missing profile only degrades scoring, it must not fail the search.
func (t *TwitterSearcher) lookupProfile(username string) *twitterscraper.Profile {
	t.m.Lock()
	if profile, ok := t.profiles[username]; ok {
		t.m.Unlock()
		return profile
	}
	t.m.Unlock()

	profile, err := t.scraper.GetProfile(username)
	if err != nil {
		Logger.Log.Warnln("fail to fetch twitter profile for", username, ":", err)
		// Negative-cache so one broken profile doesn't get re-fetched per cycle.
		t.m.Lock()
		t.profiles[username] = nil
		t.m.Unlock()
		return nil
	}

	t.m.Lock()
	t.profiles[username] = &profile
	t.m.Unlock()
	return &profile
}

func translateTwitterError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit") {
		return &RateLimitError{Platform: TwitterPlatform}
	}
	return errors.Wrap(err, "twitter search")
}
