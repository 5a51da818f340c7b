package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	Logger "github.com/wandergrowth/leadmux/utils/log"
)

const redditSearchUrlFormat = "https://www.reddit.com/search.rss?q=%s&sort=new&limit=%d"

// RedditSearcher searches reddit through the public search RSS feed. The feed
// doesn't carry engagement metrics, so reddit candidates rank purely on
// content and recency, which for fresh posts is what matters anyway.
type RedditSearcher struct {
	parser *gofeed.Parser
}

func NewRedditSearcher() *RedditSearcher {
	parser := gofeed.NewParser()
	// Reddit throttles the default go http user agent aggressively.
	parser.UserAgent = "leadmux/1.0"
	return &RedditSearcher{parser: parser}
}

func (r *RedditSearcher) Platform() string {
	return RedditPlatform
}

func (r *RedditSearcher) Search(ctx context.Context, query string, maxResults int) ([]Post, error) {
	feedUrl := fmt.Sprintf(redditSearchUrlFormat, url.QueryEscape(query), maxResults)
	feed, err := r.parser.ParseURLWithContext(feedUrl, ctx)
	if err != nil {
		return nil, translateRedditError(err)
	}

	posts := []Post{}
	for _, item := range feed.Items {
		if len(posts) >= maxResults {
			break
		}
		posts = append(posts, Post{
			Platform:     RedditPlatform,
			ExternalId:   item.GUID,
			AuthorHandle: redditAuthor(item),
			Content:      redditContent(item),
			CreatedAt:    redditPublishedAt(item),
		})
	}
	return posts, nil
}

func redditAuthor(item *gofeed.Item) string {
	if item.Author == nil {
		return ""
	}
	return strings.TrimPrefix(item.Author.Name, "/u/")
}

func redditContent(item *gofeed.Item) string {
	content := item.Title
	body := item.Content
	if body == "" {
		body = item.Description
	}
	if body != "" {
		content = content + "\n" + body
	}
	return content
}

func redditPublishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	parsed, err := dateparse.ParseAny(item.Published)
	if err != nil {
		Logger.Log.Warnln("fail to parse reddit publish time:", item.Published)
		return time.Now()
	}
	return parsed
}

func translateRedditError(err error) error {
	var httpError gofeed.HTTPError
	if errors.As(err, &httpError) && httpError.StatusCode == 429 {
		return &RateLimitError{Platform: RedditPlatform}
	}
	return errors.Wrap(err, "reddit search")
}
