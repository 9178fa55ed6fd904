package source

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// FeedItem is one entry of an RSS or Atom feed with its body reduced to plain text
type FeedItem struct {
	Title     string
	Link      string
	Body      string
	Author    string
	Published *time.Time
}

// Feed is a parsed RSS 2.0, RSS 1.0 (RDF) or Atom 1.0 feed
type Feed struct {
	Title string
	Link  string
	Items []FeedItem
}

var stripPolicy = bluemonday.StrictPolicy()

// ParseFeed detects the dialect from the root element and parses at most limit items.
// A limit <= 0 keeps every item.
func ParseFeed(data []byte, limit int) (*Feed, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("feed: empty document")
	}

	var (
		feed *Feed
		err  error
	)
	switch feedDialect(trimmed) {
	case "rss":
		feed, err = parseRSS(trimmed)
	case "rdf":
		feed, err = parseRDF(trimmed)
	case "atom":
		feed, err = parseAtom(trimmed)
	default:
		return nil, fmt.Errorf("feed: unknown format (expected <rss>, <rdf:RDF> or <feed>)")
	}
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(feed.Items) > limit {
		feed.Items = feed.Items[:limit]
	}
	return feed, nil
}

// Digest renders the feed as prose for extraction
func (f *Feed) Digest() string {
	var b strings.Builder
	if f.Title != "" {
		fmt.Fprintf(&b, "Feed: %s\n\n", f.Title)
	}
	for _, item := range f.Items {
		fmt.Fprintf(&b, "Title: %s\n", item.Title)
		if item.Body != "" {
			b.WriteString(item.Body)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Latest returns the newest item publication time
func (f *Feed) Latest() *time.Time {
	var latest *time.Time
	for i := range f.Items {
		if p := f.Items[i].Published; p != nil && (latest == nil || p.After(*latest)) {
			latest = p
		}
	}
	return latest
}

// SortByDate orders items newest first; undated items go last
func (f *Feed) SortByDate() {
	sort.SliceStable(f.Items, func(i, j int) bool {
		a, b := f.Items[i].Published, f.Items[j].Published
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
}

func feedDialect(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss":
				return "rss"
			case "rdf":
				return "rdf"
			case "feed":
				return "atom"
			}
			return ""
		}
	}
}

// stripHTML reduces an item body to plain text
func stripHTML(s string) string {
	// Tags are word boundaries: "<p>One.</p><p>Two.</p>" must not fuse.
	text := html.UnescapeString(stripPolicy.Sanitize(strings.ReplaceAll(s, "<", " <")))
	return strings.Join(strings.Fields(text), " ")
}

func publishedAt(values ...string) *time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, ok := parseTime(v); ok {
			return &t
		}
	}
	return nil
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string    `xml:"title"`
		Link  string    `xml:"link"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rdfDocument struct {
	XMLName xml.Name `xml:"RDF"`
	Channel struct {
		Title string `xml:"title"`
		Link  string `xml:"link"`
	} `xml:"channel"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Content     string `xml:"encoded"` // content:encoded
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"` // dc:date
	Author      string `xml:"author"`
	Creator     string `xml:"creator"` // dc:creator
}

func (item rssItem) toFeedItem() FeedItem {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	author := strings.TrimSpace(item.Author)
	if author == "" {
		author = strings.TrimSpace(item.Creator)
	}
	return FeedItem{
		Title:     stripHTML(item.Title),
		Link:      strings.TrimSpace(item.Link),
		Body:      stripHTML(body),
		Author:    author,
		Published: publishedAt(item.PubDate, item.Date),
	}
}

func parseRSS(data []byte) (*Feed, error) {
	var doc rssDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("feed: parse rss: %w", err)
	}

	feed := &Feed{
		Title: strings.TrimSpace(doc.Channel.Title),
		Link:  strings.TrimSpace(doc.Channel.Link),
		Items: make([]FeedItem, 0, len(doc.Channel.Items)),
	}
	for _, item := range doc.Channel.Items {
		feed.Items = append(feed.Items, item.toFeedItem())
	}
	return feed, nil
}

func parseRDF(data []byte) (*Feed, error) {
	var doc rdfDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("feed: parse rdf: %w", err)
	}

	feed := &Feed{
		Title: strings.TrimSpace(doc.Channel.Title),
		Link:  strings.TrimSpace(doc.Channel.Link),
		Items: make([]FeedItem, 0, len(doc.Items)),
	}
	for _, item := range doc.Items {
		feed.Items = append(feed.Items, item.toFeedItem())
	}
	return feed, nil
}

type atomDocument struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	Title     string       `xml:"title"`
	Links     []atomLink   `xml:"link"`
	Summary   string       `xml:"summary"`
	Content   atomContent  `xml:"content"`
	Published string       `xml:"published"`
	Updated   string       `xml:"updated"`
	Authors   []atomAuthor `xml:"author"`
}

type atomContent struct {
	Body  string `xml:",chardata"`
	Inner string `xml:",innerxml"`
	Type  string `xml:"type,attr"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

func parseAtom(data []byte) (*Feed, error) {
	var doc atomDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("feed: parse atom: %w", err)
	}

	feed := &Feed{
		Title: stripHTML(doc.Title),
		Link:  atomLinkHref(doc.Links),
		Items: make([]FeedItem, 0, len(doc.Entries)),
	}

	for _, entry := range doc.Entries {
		body := entry.Content.Body
		if entry.Content.Type == "xhtml" {
			body = entry.Content.Inner
		}
		if strings.TrimSpace(body) == "" {
			body = entry.Summary
		}

		var author string
		if len(entry.Authors) > 0 {
			author = strings.TrimSpace(entry.Authors[0].Name)
		}

		feed.Items = append(feed.Items, FeedItem{
			Title:     stripHTML(entry.Title),
			Link:      atomLinkHref(entry.Links),
			Body:      stripHTML(body),
			Author:    author,
			Published: publishedAt(entry.Published, entry.Updated),
		})
	}
	return feed, nil
}

// atomLinkHref prefers rel="alternate" (or no rel) over other links
func atomLinkHref(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}
