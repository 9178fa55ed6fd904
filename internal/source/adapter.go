package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/vocabmine/internal/model"
)

// Adapter fetches one kind of source and normalizes it into a Document.
// Fetch never fails: errors come back as error-marker documents.
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle reports whether the adapter recognizes the locator on sight
	CanHandle(locator string) bool

	// Fetch retrieves and normalizes the source
	Fetch(ctx context.Context, locator string) model.Document

	// Discover lists sources related to topic, at most max of them
	Discover(ctx context.Context, topic string, max int) ([]model.SourceMetadata, error)
}

// Router dispatches by declared source type
type Router struct {
	adapters map[model.SourceType]Adapter
	order    []model.SourceType
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{
		adapters: make(map[model.SourceType]Adapter),
	}
}

// Register binds an adapter to a source type. Registration order is the
// order Detect consults CanHandle in.
func (r *Router) Register(t model.SourceType, adapter Adapter) {
	if _, exists := r.adapters[t]; !exists {
		r.order = append(r.order, t)
	}
	r.adapters[t] = adapter
}

// Route returns the adapter for t, falling back to the HTML adapter
func (r *Router) Route(t model.SourceType) Adapter {
	if adapter, ok := r.adapters[model.ParseSourceType(string(t))]; ok {
		return adapter
	}
	return r.adapters[model.SourceHTML]
}

// Detect picks a type for an untyped locator from the first adapter that
// recognizes it; unrecognized locators are html.
func (r *Router) Detect(locator string) model.SourceType {
	for _, t := range r.order {
		if t == model.SourceHTML {
			continue
		}
		if r.adapters[t].CanHandle(locator) {
			return t
		}
	}
	return model.SourceHTML
}

// Fetch fetches a spec through its adapter
func (r *Router) Fetch(ctx context.Context, spec model.SourceSpec) model.Document {
	adapter := r.Route(spec.Type)
	if adapter == nil {
		return ErrorDocument(spec.Locator, fmt.Errorf("%w: no adapter for %q", model.ErrUnsupportedSource, spec.Type))
	}
	return adapter.Fetch(ctx, spec.Locator)
}

// Discover asks the adapter for t to list sources for topic
func (r *Router) Discover(ctx context.Context, t model.SourceType, topic string, max int) ([]model.SourceMetadata, error) {
	adapter := r.Route(t)
	if adapter == nil {
		return nil, fmt.Errorf("%w: no adapter for %q", model.ErrUnsupportedSource, t)
	}
	return adapter.Discover(ctx, topic, max)
}

// ErrorDocument is the degenerate document adapters return on failure
func ErrorDocument(locator string, cause error) model.Document {
	text := fmt.Sprintf("Error fetching %s: %v", locator, cause)
	return model.Document{
		URL:            locator,
		Title:          "Error",
		Text:           text,
		ContentHash:    contentHash(text),
		SourceIndustry: "general",
		ExtractedAt:    time.Now().UTC(),
		FetchError:     cause.Error(),
	}
}

// NewTextDocument wraps text supplied by the caller, such as a job's inline
// source text, as a document of type t
func NewTextDocument(t model.SourceType, locator, title, text string) model.Document {
	if t == "" {
		t = model.SourceHTML
	}
	return newDocument(t, locator, title, text)
}

// newDocument fills the derived fields of a successfully fetched document
func newDocument(t model.SourceType, locator, title, text string) model.Document {
	text = strings.TrimSpace(text)
	return model.Document{
		URL:               locator,
		Title:             strings.TrimSpace(title),
		Text:              text,
		ContentHash:       contentHash(text),
		SourceReliability: reliability(t, locator),
		SourceIndustry:    industry(locator, title),
		SourceType:        t,
		ExtractedAt:       time.Now().UTC(),
	}
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// hostOf returns the lowercased host of an URL locator without port
func hostOf(locator string) string {
	parsed, err := url.Parse(locator)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func isHTTP(locator string) bool {
	lower := strings.ToLower(locator)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// clampMax bounds a discovery limit
func clampMax(max, ceiling int) int {
	if max <= 0 || max > ceiling {
		return ceiling
	}
	return max
}
