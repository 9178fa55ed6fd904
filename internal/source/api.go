package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/vocabmine/internal/model"
)

// APIConfig describes how to read items out of a JSON API response
type APIConfig struct {
	ResultPath string            `yaml:"result_path"` // dot path to the item array, e.g. "data.results"
	Fields     map[string]string `yaml:"fields"`      // title/text/url -> item key
}

// textKeys are object keys whose string values count as prose when no
// result path is configured
var textKeys = map[string]bool{
	"title": true, "headline": true, "name": true,
	"text": true, "body": true, "content": true, "description": true,
	"summary": true, "abstract": true, "extract": true, "definition": true,
	"example": true, "selftext": true, "story_text": true, "comment_text": true,
}

// APIAdapter reads arbitrary JSON APIs
type APIAdapter struct {
	http   *HTTPFetcher
	config APIConfig
}

// NewAPIAdapter creates the generic API adapter
func NewAPIAdapter(fetcher *HTTPFetcher, config APIConfig) *APIAdapter {
	return &APIAdapter{http: fetcher, config: config}
}

func (a *APIAdapter) Name() string {
	return "api"
}

func (a *APIAdapter) CanHandle(locator string) bool {
	if !isHTTP(locator) {
		return false
	}
	lower := strings.ToLower(locator)
	return strings.HasSuffix(lower, ".json") || strings.Contains(lower, "/api/")
}

func (a *APIAdapter) Fetch(ctx context.Context, locator string) model.Document {
	items, err := a.load(ctx, locator)
	if err != nil {
		return ErrorDocument(locator, err)
	}

	var (
		b     strings.Builder
		title string
	)
	for _, item := range items {
		if title == "" {
			title = item.Title
		}
		if item.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", item.Title)
		}
		if item.Text != "" {
			b.WriteString(item.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return ErrorDocument(locator, fmt.Errorf("no text fields in response"))
	}
	if title == "" {
		title = hostOf(locator)
	}
	return newDocument(model.SourceAPI, locator, title, text)
}

// Discover lists items with links when the response is an item array
func (a *APIAdapter) Discover(ctx context.Context, topic string, max int) ([]model.SourceMetadata, error) {
	items, err := a.load(ctx, topic)
	if err != nil {
		return nil, err
	}

	max = clampMax(max, 50)
	results := make([]model.SourceMetadata, 0, max)
	for _, item := range items {
		if len(results) >= max {
			break
		}
		if item.URL == "" {
			continue
		}
		results = append(results, model.SourceMetadata{
			URL:        item.URL,
			Title:      item.Title,
			SourceType: model.SourceHTML,
			Snippet:    truncateRunes(item.Text, 200),
		})
	}
	return results, nil
}

type apiItem struct {
	Title string
	Text  string
	URL   string
}

func (a *APIAdapter) load(ctx context.Context, locator string) ([]apiItem, error) {
	resp, err := a.http.Get(ctx, a.Name(), locator, "application/json")
	if err != nil {
		return nil, err
	}

	var raw any
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	if a.config.ResultPath != "" || a.config.Fields != nil {
		values, err := walkPath(raw, a.config.ResultPath)
		if err != nil {
			return nil, fmt.Errorf("walk path %q: %w", a.config.ResultPath, err)
		}
		items := make([]apiItem, 0, len(values))
		for _, v := range values {
			if obj, ok := v.(map[string]any); ok {
				items = append(items, mapFields(obj, a.config.Fields))
			}
		}
		return items, nil
	}

	if arr, ok := raw.([]any); ok {
		items := make([]apiItem, 0, len(arr))
		for _, v := range arr {
			if obj, ok := v.(map[string]any); ok {
				items = append(items, collectItem(obj))
			}
		}
		return items, nil
	}

	if obj, ok := raw.(map[string]any); ok {
		return []apiItem{collectItem(obj)}, nil
	}
	return nil, fmt.Errorf("unexpected JSON root %T", raw)
}

// walkPath follows a dot path to an array. An empty path requires an array root.
func walkPath(v any, path string) ([]any, error) {
	current := v
	if path != "" {
		for _, part := range strings.Split(path, ".") {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at %q, got %T", part, current)
			}
			if current, ok = obj[part]; !ok {
				return nil, fmt.Errorf("key %q not found", part)
			}
		}
	}

	arr, ok := current.([]any)
	if !ok {
		return nil, fmt.Errorf("value at %q is not an array", path)
	}
	return arr, nil
}

func mapFields(obj map[string]any, fields map[string]string) apiItem {
	if fields == nil {
		return collectItem(obj)
	}
	return apiItem{
		Title: asString(obj[fields["title"]]),
		Text:  asString(obj[fields["text"]]),
		URL:   asString(obj[fields["url"]]),
	}
}

// collectItem gathers prose from known text keys, descending into nested
// objects and arrays in key order
func collectItem(obj map[string]any) apiItem {
	item := apiItem{
		Title: firstString(obj, "title", "headline", "name"),
		URL:   firstString(obj, "url", "link", "href"),
	}

	var parts []string
	var walk func(key string, v any)
	walk = func(key string, v any) {
		switch val := v.(type) {
		case string:
			if textKeys[key] && key != "title" && key != "headline" && key != "name" {
				if s := strings.TrimSpace(stripHTML(val)); s != "" {
					parts = append(parts, s)
				}
			}
		case map[string]any:
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(strings.ToLower(k), val[k])
			}
		case []any:
			for _, elem := range val {
				walk(key, elem)
			}
		}
	}
	walk("", obj)

	item.Text = strings.Join(parts, "\n")
	return item
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
