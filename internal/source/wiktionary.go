package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/vocabmine/internal/model"
)

const defaultWiktionaryAPI = "https://%s.wiktionary.org/api/rest_v1/page/definition/"

// WiktionaryAdapter renders REST definition entries as sentences the
// extractor can mine ("<term> is <definition>.")
type WiktionaryAdapter struct {
	http    *HTTPFetcher
	apiBase string
	lang    string
}

// NewWiktionaryAdapter creates the adapter; lang defaults to en
func NewWiktionaryAdapter(fetcher *HTTPFetcher, lang string) *WiktionaryAdapter {
	if lang == "" {
		lang = "en"
	}
	return &WiktionaryAdapter{http: fetcher, apiBase: defaultWiktionaryAPI, lang: lang}
}

// WithAPIBase points the adapter at another endpoint
func (a *WiktionaryAdapter) WithAPIBase(base string) *WiktionaryAdapter {
	a.apiBase = base
	return a
}

// wiktionarySense is one definition under a part of speech
type wiktionarySense struct {
	Definition string   `json:"definition"`
	Examples   []string `json:"examples"`
}

// wiktionaryEntry groups senses by part of speech for one language
type wiktionaryEntry struct {
	PartOfSpeech string            `json:"partOfSpeech"`
	Language     string            `json:"language"`
	Definitions  []wiktionarySense `json:"definitions"`
}

// wiktionaryResponse is keyed by language code
type wiktionaryResponse map[string][]wiktionaryEntry

func (a *WiktionaryAdapter) Name() string {
	return "wiktionary"
}

func (a *WiktionaryAdapter) CanHandle(locator string) bool {
	host := hostOf(locator)
	return host == "wiktionary.org" || strings.HasSuffix(host, ".wiktionary.org")
}

// Fetch accepts an entry URL or a bare term
func (a *WiktionaryAdapter) Fetch(ctx context.Context, locator string) model.Document {
	lang, term := resolveWikiLocator(locator, a.lang)
	if term == "" {
		return ErrorDocument(locator, fmt.Errorf("no term in locator"))
	}

	var resp wiktionaryResponse
	if err := a.http.GetJSON(ctx, a.Name(), a.endpoint(lang)+url.PathEscape(strings.ReplaceAll(term, " ", "_")), &resp); err != nil {
		return ErrorDocument(locator, err)
	}

	text := a.render(term, resp[lang])
	if text == "" {
		return ErrorDocument(locator, fmt.Errorf("no %s definitions for %q", lang, term))
	}

	docURL := locator
	if !isHTTP(locator) {
		docURL = fmt.Sprintf("https://%s.wiktionary.org/wiki/%s", lang, url.PathEscape(strings.ReplaceAll(term, " ", "_")))
	}
	doc := newDocument(model.SourceWiktionary, docURL, term, text)
	doc.Language = lang
	return doc
}

// Discover maps topic onto its entry; Wiktionary has no topical search
func (a *WiktionaryAdapter) Discover(ctx context.Context, topic string, max int) ([]model.SourceMetadata, error) {
	term := strings.TrimSpace(topic)
	if term == "" {
		return nil, nil
	}
	return []model.SourceMetadata{{
		URL:        fmt.Sprintf("https://%s.wiktionary.org/wiki/%s", a.lang, url.PathEscape(strings.ReplaceAll(term, " ", "_"))),
		Title:      term,
		SourceType: model.SourceWiktionary,
	}}, nil
}

func (a *WiktionaryAdapter) render(term string, entries []wiktionaryEntry) string {
	var b strings.Builder
	for _, entry := range entries {
		for _, sense := range entry.Definitions {
			definition := strings.TrimRight(stripHTML(sense.Definition), ". ")
			if definition == "" {
				continue
			}
			pos := strings.ToLower(entry.PartOfSpeech)
			if pos != "" {
				fmt.Fprintf(&b, "%s (%s) is %s.\n", term, pos, lowerFirst(definition))
			} else {
				fmt.Fprintf(&b, "%s is %s.\n", term, lowerFirst(definition))
			}
			for _, example := range sense.Examples {
				if ex := stripHTML(example); ex != "" {
					b.WriteString(ex)
					if !strings.HasSuffix(ex, ".") {
						b.WriteString(".")
					}
					b.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func (a *WiktionaryAdapter) endpoint(lang string) string {
	if strings.Contains(a.apiBase, "%s") {
		return fmt.Sprintf(a.apiBase, lang)
	}
	return a.apiBase
}

// lowerFirst lowercases a leading capital unless it starts an acronym
func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) < 2 {
		return strings.ToLower(s)
	}
	if r[0] >= 'A' && r[0] <= 'Z' && !(r[1] >= 'A' && r[1] <= 'Z') {
		r[0] = r[0] + ('a' - 'A')
	}
	return string(r)
}
