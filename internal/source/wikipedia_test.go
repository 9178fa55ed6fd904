package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/vocabmine/internal/model"
)

func TestWikipediaAdapter_Fetch(t *testing.T) {
	var gotTitle string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.URL.Query().Get("titles")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query": {"pages": [{
			"pageid": 233488,
			"title": "Machine learning",
			"fullurl": "https://en.wikipedia.org/wiki/Machine_learning",
			"pagelanguage": "en",
			"extract": "Machine learning is a field of study in artificial intelligence.\n\n== History ==\nThe term machine learning was coined in 1959.",
			"revisions": [{"timestamp": "2024-05-01T12:00:00Z"}]
		}]}}`))
	}))
	defer server.Close()

	adapter := NewWikipediaAdapter(newTestFetcher(), "en").WithAPIBase(server.URL)
	doc := adapter.Fetch(context.Background(), "https://en.wikipedia.org/wiki/Machine_learning")

	if doc.Failed() {
		t.Fatalf("Unexpected fetch error: %s", doc.FetchError)
	}
	if gotTitle != "Machine learning" {
		t.Errorf("Expected title query 'Machine learning', got %q", gotTitle)
	}
	if doc.SourceType != model.SourceWikipedia {
		t.Errorf("Expected wikipedia type, got %s", doc.SourceType)
	}
	if doc.SourceReliability != 0.9 {
		t.Errorf("Expected reliability 0.9, got %.2f", doc.SourceReliability)
	}
	if strings.Contains(doc.Text, "== History ==") {
		t.Errorf("Expected section headings to be dropped, got %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "coined in 1959") {
		t.Errorf("Expected section body to be kept, got %q", doc.Text)
	}
	if doc.PublishedAt == nil || doc.PublishedAt.Year() != 2024 {
		t.Errorf("Expected revision timestamp, got %v", doc.PublishedAt)
	}
}

func TestWikipediaAdapter_MissingPage(t *testing.T) {
	server := jsonServer(t, `{"query": {"pages": [{"title": "Nope", "missing": true}]}}`)

	doc := NewWikipediaAdapter(newTestFetcher(), "").WithAPIBase(server.URL).Fetch(context.Background(), "Nope")
	if !doc.Failed() {
		t.Error("Expected error document for missing page")
	}
}

func TestWikipediaAdapter_UnexpectedShape(t *testing.T) {
	server := jsonServer(t, `{"batchcomplete": true}`)

	doc := NewWikipediaAdapter(newTestFetcher(), "").WithAPIBase(server.URL).Fetch(context.Background(), "Go")
	if !doc.Failed() {
		t.Error("Expected error document when the response has no pages")
	}
}

func TestWikipediaAdapter_Discover(t *testing.T) {
	server := jsonServer(t, `{"query": {"search": [
		{"title": "Neural network", "snippet": "A <span class=\"searchmatch\">neural</span> network", "timestamp": "2024-01-01T00:00:00Z"},
		{"title": "Deep learning", "snippet": "Deep learning is"}
	]}}`)

	items, err := NewWikipediaAdapter(newTestFetcher(), "en").WithAPIBase(server.URL).Discover(context.Background(), "neural", 5)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(items))
	}
	if items[0].URL != "https://en.wikipedia.org/wiki/Neural_network" {
		t.Errorf("Unexpected url %q", items[0].URL)
	}
	if items[0].Snippet != "A neural network" {
		t.Errorf("Expected snippet without markup, got %q", items[0].Snippet)
	}
}

func TestResolveWikiLocator(t *testing.T) {
	tests := []struct {
		locator      string
		expectedLang string
		expectedTerm string
	}{
		{"https://de.wikipedia.org/wiki/Maschinelles_Lernen", "de", "Maschinelles Lernen"},
		{"https://en.wikipedia.org/wiki/Go_(programming_language)#History", "en", "Go (programming language)"},
		{"https://en.wikipedia.org/w/index.php?title=Rust", "en", "Rust"},
		{"Vector database", "en", "Vector database"},
	}

	for _, tt := range tests {
		lang, term := resolveWikiLocator(tt.locator, "en")
		if lang != tt.expectedLang || term != tt.expectedTerm {
			t.Errorf("resolveWikiLocator(%q): expected (%s, %s), got (%s, %s)", tt.locator, tt.expectedLang, tt.expectedTerm, lang, term)
		}
	}
}

func TestWiktionaryAdapter_Fetch(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"en": [{"partOfSpeech": "Noun", "language": "English", "definitions": [
				{"definition": "A <a href=\"/wiki/small\">small</a> program that runs in the background.", "examples": ["The <b>daemon</b> restarted overnight"]}
			]}],
			"fr": [{"partOfSpeech": "Noun", "definitions": [{"definition": "démon"}]}]
		}`))
	}))
	defer server.Close()

	adapter := NewWiktionaryAdapter(newTestFetcher(), "en").WithAPIBase(server.URL + "/definition/")
	doc := adapter.Fetch(context.Background(), "daemon")

	if doc.Failed() {
		t.Fatalf("Unexpected fetch error: %s", doc.FetchError)
	}
	if gotPath != "/definition/daemon" {
		t.Errorf("Expected /definition/daemon, got %q", gotPath)
	}
	if !strings.Contains(doc.Text, "daemon (noun) is a small program that runs in the background.") {
		t.Errorf("Expected definitional sentence, got %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "The daemon restarted overnight.") {
		t.Errorf("Expected example sentence, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "démon") {
		t.Errorf("Expected other languages to be ignored, got %q", doc.Text)
	}
	if doc.URL != "https://en.wiktionary.org/wiki/daemon" {
		t.Errorf("Unexpected document url %q", doc.URL)
	}
}

func TestWiktionaryAdapter_NoDefinitions(t *testing.T) {
	server := jsonServer(t, `{"fr": [{"partOfSpeech": "Noun", "definitions": [{"definition": "x"}]}]}`)

	doc := NewWiktionaryAdapter(newTestFetcher(), "en").WithAPIBase(server.URL+"/").Fetch(context.Background(), "word")
	if !doc.Failed() {
		t.Error("Expected error document when no English definitions exist")
	}
}
