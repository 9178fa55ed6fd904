package source

import (
	"strings"

	"github.com/ppiankov/vocabmine/internal/model"
)

var typeReliability = map[model.SourceType]float64{
	model.SourceWikipedia:  0.9,
	model.SourceWiktionary: 0.9,
	model.SourceFile:       0.8,
	model.SourceAPI:        0.6,
	model.SourceRSS:        0.6,
	model.SourceHTML:       0.5,
	model.SourceYouTube:    0.4,
}

// reliability scores a source 0..1 from its type and domain
func reliability(t model.SourceType, locator string) float64 {
	score, ok := typeReliability[t]
	if !ok {
		score = 0.5
	}

	host := hostOf(locator)
	switch {
	case strings.HasSuffix(host, ".gov"), strings.HasSuffix(host, ".edu"), strings.HasSuffix(host, ".ac.uk"):
		score = 0.9
	case matchesAny(host, newsHosts):
		score = 0.7
	}
	return score
}

var newsHosts = []string{
	"reuters.com", "apnews.com", "bbc.co.uk", "bbc.com", "nytimes.com",
	"theguardian.com", "washingtonpost.com", "bloomberg.com", "cnn.com",
	"techcrunch.com", "theverge.com", "arstechnica.com", "wired.com",
}

var industryKeywords = []struct {
	industry string
	keywords []string
}{
	{"technology", []string{"tech", "software", "github", "developer", "code", "cloud", "golang", "python", "arxiv.org/abs/cs"}},
	{"finance", []string{"finance", "bank", "invest", "market", "stock", "crypto", "bloomberg", "fintech"}},
	{"science", []string{"science", "nature.com", "arxiv", "research", "journal", "pubmed", "nasa", ".edu"}},
	{"news", []string{"news", "times", "post", "reuters", "apnews", "bbc", "cnn", "guardian"}},
}

// industry labels a source from keywords in its host, path and title
func industry(locator, title string) string {
	haystack := strings.ToLower(locator + " " + title)
	for _, entry := range industryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				return entry.industry
			}
		}
	}
	return "general"
}

func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
