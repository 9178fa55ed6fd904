package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/vocabmine/internal/model"
)

const defaultWikipediaAPI = "https://%s.wikipedia.org/w/api.php"

// WikipediaAdapter reads article plain text through the MediaWiki action API
type WikipediaAdapter struct {
	http    *HTTPFetcher
	apiBase string // may contain %s for the language code
	lang    string
}

// NewWikipediaAdapter creates the adapter; lang defaults to en
func NewWikipediaAdapter(fetcher *HTTPFetcher, lang string) *WikipediaAdapter {
	if lang == "" {
		lang = "en"
	}
	return &WikipediaAdapter{http: fetcher, apiBase: defaultWikipediaAPI, lang: lang}
}

// WithAPIBase points the adapter at another endpoint
func (a *WikipediaAdapter) WithAPIBase(base string) *WikipediaAdapter {
	a.apiBase = base
	return a
}

// wikiExtractResponse is the formatversion=2 shape of prop=extracts
type wikiExtractResponse struct {
	Query struct {
		Pages []struct {
			PageID    int    `json:"pageid"`
			Title     string `json:"title"`
			Extract   string `json:"extract"`
			Missing   bool   `json:"missing"`
			Touched   string `json:"touched"`
			FullURL   string `json:"fullurl"`
			PageLang  string `json:"pagelanguage"`
			Revisions []struct {
				Timestamp string `json:"timestamp"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// wikiSearchResponse is the formatversion=2 shape of list=search
type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title     string `json:"title"`
			PageID    int    `json:"pageid"`
			Snippet   string `json:"snippet"`
			Timestamp string `json:"timestamp"`
		} `json:"search"`
	} `json:"query"`
}

func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

func (a *WikipediaAdapter) CanHandle(locator string) bool {
	host := hostOf(locator)
	return host == "wikipedia.org" || strings.HasSuffix(host, ".wikipedia.org")
}

// Fetch accepts an article URL or a bare title
func (a *WikipediaAdapter) Fetch(ctx context.Context, locator string) model.Document {
	lang, title := a.resolve(locator)
	if title == "" {
		return ErrorDocument(locator, fmt.Errorf("no article title in locator"))
	}

	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"prop":          {"extracts|info|revisions"},
		"inprop":        {"url"},
		"rvprop":        {"timestamp"},
		"explaintext":   {"1"},
		"redirects":     {"1"},
		"titles":        {title},
	}

	var resp wikiExtractResponse
	if err := a.http.GetJSON(ctx, a.Name(), a.endpoint(lang)+"?"+params.Encode(), &resp); err != nil {
		return ErrorDocument(locator, err)
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing || strings.TrimSpace(resp.Query.Pages[0].Extract) == "" {
		return ErrorDocument(locator, fmt.Errorf("article %q not found", title))
	}

	page := resp.Query.Pages[0]
	docURL := page.FullURL
	if docURL == "" {
		docURL = fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", lang, url.PathEscape(strings.ReplaceAll(page.Title, " ", "_")))
	}

	doc := newDocument(model.SourceWikipedia, docURL, page.Title, stripSectionHeadings(page.Extract))
	doc.Language = lang
	if page.PageLang != "" {
		doc.Language = page.PageLang
	}
	if len(page.Revisions) > 0 {
		if t, err := time.Parse(time.RFC3339, page.Revisions[0].Timestamp); err == nil {
			doc.PublishedAt = &t
		}
	}
	return doc
}

// Discover searches article titles for topic
func (a *WikipediaAdapter) Discover(ctx context.Context, topic string, max int) ([]model.SourceMetadata, error) {
	max = clampMax(max, 50)
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"list":          {"search"},
		"srsearch":      {topic},
		"srlimit":       {strconv.Itoa(max)},
	}

	var resp wikiSearchResponse
	if err := a.http.GetJSON(ctx, a.Name(), a.endpoint(a.lang)+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	results := make([]model.SourceMetadata, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		if hit.Title == "" {
			continue
		}
		meta := model.SourceMetadata{
			URL:        fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", a.lang, url.PathEscape(strings.ReplaceAll(hit.Title, " ", "_"))),
			Title:      hit.Title,
			SourceType: model.SourceWikipedia,
			Snippet:    stripHTML(hit.Snippet),
		}
		if t, err := time.Parse(time.RFC3339, hit.Timestamp); err == nil {
			meta.PublishedAt = &t
		}
		results = append(results, meta)
		if len(results) >= max {
			break
		}
	}
	return results, nil
}

func (a *WikipediaAdapter) endpoint(lang string) string {
	if strings.Contains(a.apiBase, "%s") {
		return fmt.Sprintf(a.apiBase, lang)
	}
	return a.apiBase
}

// resolve splits a locator into language and article title
func (a *WikipediaAdapter) resolve(locator string) (string, string) {
	return resolveWikiLocator(locator, a.lang)
}

// resolveWikiLocator reads "<lang>.<site>.org/wiki/<Title>" URLs; anything else is a bare title
func resolveWikiLocator(locator, defaultLang string) (string, string) {
	if !isHTTP(locator) {
		return defaultLang, strings.TrimSpace(locator)
	}

	parsed, err := url.Parse(locator)
	if err != nil {
		return defaultLang, ""
	}

	lang := defaultLang
	if parts := strings.Split(parsed.Hostname(), "."); len(parts) >= 3 && parts[0] != "www" && parts[0] != "m" {
		lang = parts[0]
	}

	title := ""
	if strings.HasPrefix(parsed.Path, "/wiki/") {
		title = strings.TrimPrefix(parsed.Path, "/wiki/")
	} else if t := parsed.Query().Get("title"); t != "" {
		title = t
	}
	if idx := strings.Index(title, "#"); idx >= 0 {
		title = title[:idx]
	}
	return lang, strings.ReplaceAll(title, "_", " ")
}

// stripSectionHeadings drops "== Heading ==" lines from plaintext extracts
func stripSectionHeadings(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "==") && strings.HasSuffix(trimmed, "==") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
