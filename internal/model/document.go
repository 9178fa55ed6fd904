package model

import "time"

// SourceType identifies which adapter produces a document
type SourceType string

const (
	SourceHTML       SourceType = "html"
	SourceRSS        SourceType = "rss"
	SourceAPI        SourceType = "api"
	SourceFile       SourceType = "file"
	SourceWikipedia  SourceType = "wikipedia"
	SourceWiktionary SourceType = "wiktionary"
	SourceYouTube    SourceType = "youtube"
)

// ParseSourceType maps a declared source type to a known value. Unknown values map to html.
func ParseSourceType(s string) SourceType {
	switch SourceType(s) {
	case SourceHTML, SourceRSS, SourceAPI, SourceFile, SourceWikipedia, SourceWiktionary, SourceYouTube:
		return SourceType(s)
	default:
		return SourceHTML
	}
}

// Document is the normalized output of one adapter fetch
type Document struct {
	URL               string     `json:"url"`
	Title             string     `json:"title"`
	Text              string     `json:"text"`
	Author            string     `json:"author,omitempty"`
	Language          string     `json:"language,omitempty"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	ContentHash       string     `json:"content_hash"`        // sha256 of Text, hex
	SourceReliability float64    `json:"source_reliability"`  // 0..1
	SourceIndustry    string     `json:"source_industry"`     // technology, finance, science, news, general
	SourceType        SourceType `json:"source_type"`
	ExtractedAt       time.Time  `json:"extracted_at"`
	FetchError        string     `json:"fetch_error,omitempty"` // Set only on error-marker documents
}

// Failed reports whether the document is an error marker
func (d Document) Failed() bool {
	return d.FetchError != ""
}

// SourceMetadata describes a discovered source that can be fetched later
type SourceMetadata struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	SourceType  SourceType `json:"source_type"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Snippet     string     `json:"snippet,omitempty"`
}

// SourceSpec is one source to mine: a locator and its declared type
type SourceSpec struct {
	Locator string     `json:"locator" yaml:"locator"`
	Type    SourceType `json:"type" yaml:"type"`
}
