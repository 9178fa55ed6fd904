package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/vocabmine/internal/model"
)

// RSSAdapter reads RSS and Atom feeds into a textual digest
type RSSAdapter struct {
	http      *HTTPFetcher
	itemLimit int
}

// NewRSSAdapter creates the feed adapter; itemLimit <= 0 uses 10
func NewRSSAdapter(fetcher *HTTPFetcher, itemLimit int) *RSSAdapter {
	if itemLimit <= 0 {
		itemLimit = 10
	}
	return &RSSAdapter{http: fetcher, itemLimit: itemLimit}
}

func (a *RSSAdapter) Name() string {
	return "rss"
}

func (a *RSSAdapter) CanHandle(locator string) bool {
	if !isHTTP(locator) {
		return false
	}
	lower := strings.ToLower(locator)
	return strings.HasSuffix(lower, ".rss") || strings.HasSuffix(lower, ".atom") ||
		strings.HasSuffix(lower, "/feed") || strings.HasSuffix(lower, "/feed/") ||
		strings.HasSuffix(lower, "/rss") || strings.Contains(lower, "feed.xml") ||
		strings.Contains(lower, "rss.xml") || strings.Contains(lower, "atom.xml")
}

func (a *RSSAdapter) Fetch(ctx context.Context, locator string) model.Document {
	feed, err := a.load(ctx, locator)
	if err != nil {
		return ErrorDocument(locator, err)
	}
	if len(feed.Items) == 0 {
		return ErrorDocument(locator, fmt.Errorf("feed has no items"))
	}

	title := feed.Title
	if title == "" {
		title = locator
	}

	doc := newDocument(model.SourceRSS, locator, title, feed.Digest())
	doc.PublishedAt = feed.Latest()
	if author := feed.Items[0].Author; author != "" {
		doc.Author = author
	}
	return doc
}

// Discover treats topic as a feed URL and lists its items as pages to mine
func (a *RSSAdapter) Discover(ctx context.Context, topic string, max int) ([]model.SourceMetadata, error) {
	feed, err := a.load(ctx, topic)
	if err != nil {
		return nil, err
	}

	max = clampMax(max, a.itemLimit)
	results := make([]model.SourceMetadata, 0, max)
	for _, item := range feed.Items {
		if len(results) >= max {
			break
		}
		if item.Link == "" {
			continue
		}
		results = append(results, model.SourceMetadata{
			URL:         item.Link,
			Title:       item.Title,
			SourceType:  model.SourceHTML,
			PublishedAt: item.Published,
			Snippet:     truncateRunes(item.Body, 200),
		})
	}
	return results, nil
}

func (a *RSSAdapter) load(ctx context.Context, locator string) (*Feed, error) {
	resp, err := a.http.Get(ctx, a.Name(), locator, "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8")
	if err != nil {
		return nil, err
	}
	feed, err := ParseFeed(resp.Body, 0)
	if err != nil {
		return nil, err
	}
	feed.SortByDate()
	if len(feed.Items) > a.itemLimit {
		feed.Items = feed.Items[:a.itemLimit]
	}
	return feed, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
