package source

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/net/html"

	"github.com/ppiankov/vocabmine/internal/model"
)

var (
	mdLinkRe       = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdEmphasisRe   = regexp.MustCompile("[*_`]{1,3}")
	mdBlockPrefix  = regexp.MustCompile(`^\s*(#{1,6}|>|[-*+]|\d+\.)\s+`)
	excessiveBlank = regexp.MustCompile(`\n{3,}`)
)

// HTMLAdapter extracts the readable prose of a web page
type HTMLAdapter struct {
	BaseAdapter
	http      *HTTPFetcher
	converter *md.Converter
}

// NewHTMLAdapter creates the HTML adapter
func NewHTMLAdapter(fetcher *HTTPFetcher) *HTMLAdapter {
	converter := md.NewConverter("", true, nil)
	converter.Remove("script", "style", "noscript", "iframe", "nav", "header", "footer", "aside", "form", "svg")

	return &HTMLAdapter{
		http:      fetcher,
		converter: converter,
	}
}

func (a *HTMLAdapter) Name() string {
	return "html"
}

// CanHandle accepts any http(s) locator
func (a *HTMLAdapter) CanHandle(locator string) bool {
	return isHTTP(locator)
}

func (a *HTMLAdapter) Fetch(ctx context.Context, locator string) model.Document {
	resp, err := a.http.Get(ctx, a.Name(), locator, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return ErrorDocument(locator, err)
	}

	page, err := a.ParsePage(resp.Body)
	if err != nil {
		return ErrorDocument(locator, err)
	}
	if page.Text == "" {
		return ErrorDocument(locator, fmt.Errorf("no readable text"))
	}

	doc := newDocument(model.SourceHTML, locator, page.Title, page.Text)
	doc.Author = page.Author
	doc.Language = page.Language
	doc.PublishedAt = page.PublishedAt
	if doc.PublishedAt == nil && resp.LastModified != "" {
		if t, err := time.Parse(time.RFC1123, resp.LastModified); err == nil {
			doc.PublishedAt = &t
		}
	}
	return doc
}

// Discover is not supported for plain pages
func (a *HTMLAdapter) Discover(ctx context.Context, topic string, max int) ([]model.SourceMetadata, error) {
	return []model.SourceMetadata{}, nil
}

// Page is the readable content of an HTML document
type Page struct {
	Title       string
	Author      string
	Language    string
	PublishedAt *time.Time
	Text        string
}

// ParsePage parses an HTML body into metadata and prose
func (a *HTMLAdapter) ParsePage(body []byte) (*Page, error) {
	root, err := a.ParseHTML(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{
		Title:    a.pageTitle(root),
		Author:   a.metaContent(root, "author", "article:author"),
		Language: a.pageLanguage(root),
	}
	if published := a.metaContent(root, "article:published_time", "date", "pubdate"); published != "" {
		if t, ok := parseTime(published); ok {
			page.PublishedAt = &t
		}
	}

	main := a.mainContent(root)
	var buf bytes.Buffer
	if err := html.Render(&buf, main); err != nil {
		return nil, fmt.Errorf("render main content: %w", err)
	}

	markdown, err := a.converter.ConvertString(buf.String())
	if err != nil {
		// Fall back to the raw visible text when conversion fails.
		page.Text = a.ExtractText(main)
		return page, nil
	}
	page.Text = flattenMarkdown(markdown)
	return page, nil
}

func (a *HTMLAdapter) pageTitle(root *html.Node) string {
	if og := a.metaContent(root, "og:title"); og != "" {
		return og
	}
	title := a.FindFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "title"
	})
	if title != nil {
		return a.ExtractText(title)
	}
	if h1 := a.FindFirst(root, isElement("h1")); h1 != nil {
		return a.ExtractText(h1)
	}
	return ""
}

func (a *HTMLAdapter) pageLanguage(root *html.Node) string {
	if htmlNode := a.FindFirst(root, isElement("html")); htmlNode != nil {
		if lang := a.GetAttribute(htmlNode, "lang"); lang != "" {
			return strings.ToLower(strings.SplitN(lang, "-", 2)[0])
		}
	}
	return ""
}

// metaContent returns the content of the first <meta> whose name or property matches a key
func (a *HTMLAdapter) metaContent(root *html.Node, keys ...string) string {
	for _, key := range keys {
		meta := a.FindFirst(root, func(n *html.Node) bool {
			if n.Type != html.ElementNode || n.Data != "meta" {
				return false
			}
			return strings.EqualFold(a.GetAttribute(n, "name"), key) ||
				strings.EqualFold(a.GetAttribute(n, "property"), key)
		})
		if meta != nil {
			if content := strings.TrimSpace(a.GetAttribute(meta, "content")); content != "" {
				return content
			}
		}
	}
	return ""
}

// mainContent picks the element most likely to hold the article body
func (a *HTMLAdapter) mainContent(root *html.Node) *html.Node {
	candidates := []func(*html.Node) bool{
		isElement("article"),
		isElement("main"),
		func(n *html.Node) bool {
			return n.Type == html.ElementNode && a.GetAttribute(n, "role") == "main"
		},
		func(n *html.Node) bool {
			return n.Type == html.ElementNode && (a.HasClass(n, "mw-parser-output") || a.GetAttribute(n, "id") == "content")
		},
		isElement("body"),
	}
	for _, match := range candidates {
		if n := a.FindFirst(root, match); n != nil {
			return n
		}
	}
	return root
}

// flattenMarkdown turns converted markdown into plain prose. Headings and
// list items become their own sentences.
func flattenMarkdown(markdown string) string {
	markdown = mdLinkRe.ReplaceAllString(markdown, "$1")

	var out strings.Builder
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "|") || strings.Trim(trimmed, "-=*_ ") == "" {
			out.WriteString("\n")
			continue
		}

		block := mdBlockPrefix.MatchString(trimmed)
		trimmed = mdBlockPrefix.ReplaceAllString(trimmed, "")
		trimmed = mdEmphasisRe.ReplaceAllString(trimmed, "")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == "" {
			continue
		}
		if block && !strings.ContainsAny(trimmed[len(trimmed)-1:], ".!?:") {
			trimmed += "."
		}
		out.WriteString(trimmed)
		out.WriteString("\n")
	}

	return strings.TrimSpace(excessiveBlank.ReplaceAllString(out.String(), "\n\n"))
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the date formats seen in feeds and page metadata
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
