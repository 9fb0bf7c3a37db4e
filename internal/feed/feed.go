// Package feed queries the Google News RSS search endpoint for a topic.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry is one syndication search result. Link is a redirect URL that still
// needs resolving; Published is nil when the feed carried no usable date.
type Entry struct {
	Title     string
	Link      string
	Source    string
	Published *time.Time
}

type Client struct {
	parser *gofeed.Parser
}

func NewClient(userAgent string) *Client {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &Client{parser: parser}
}

// Search fetches and parses the search feed for the query. Callers treat a
// returned error as "zero results", not as a fatal condition.
func (c *Client) Search(ctx context.Context, query string) ([]Entry, error) {
	rssURL := fmt.Sprintf(
		"https://news.google.com/rss/search?q=%s&hl=zh-TW&gl=TW&ceid=TW:zh-Hant",
		url.QueryEscape(query),
	)
	return c.parseEntries(ctx, rssURL)
}

func (c *Client) parseEntries(ctx context.Context, rssURL string) ([]Entry, error) {
	feed, err := c.parser.ParseURLWithContext(rssURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse search feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, Entry{
			Title:     item.Title,
			Link:      item.Link,
			Source:    sourceFromTitle(item.Title),
			Published: item.PublishedParsed,
		})
	}
	return entries, nil
}

// sourceFromTitle pulls the publisher out of Google News headlines, which
// come formatted as "Headline - Source".
func sourceFromTitle(title string) string {
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		return strings.TrimSpace(title[idx+3:])
	}
	return "未知來源"
}
