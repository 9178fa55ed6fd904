package validate

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/ppiankov/vocabmine/internal/model"
)

const localDomain = "local"

var (
	ccBySA = []string{"CC BY-SA 4.0", "share alike", "attribution required"}

	encyclopedicPolicy = model.SourcePolicy{
		Name:            "wikipedia",
		AllowExamples:   true,
		MaxExcerptChars: 500,
		Attribution:     "Wikipedia",
		AllowDerivative: true,
		Restrictions:    ccBySA,
	}
	dictionaryPolicy = model.SourcePolicy{
		Name:            "wiktionary",
		AllowExamples:   true,
		MaxExcerptChars: 500,
		Attribution:     "Wiktionary",
		AllowDerivative: true,
		Restrictions:    ccBySA,
	}
	socialPolicy = model.SourcePolicy{
		Name:         "social",
		Blocked:      true,
		Restrictions: []string{"user generated content", "no reuse"},
	}
	videoPolicy = model.SourcePolicy{
		Name:            "youtube",
		AllowExamples:   true,
		MaxExcerptChars: 150,
		Attribution:     "YouTube",
		Restrictions:    []string{"standard YouTube license"},
	}
	localPolicy = model.SourcePolicy{
		Name:            "local",
		AllowExamples:   true,
		MaxExcerptChars: 1000,
		AllowDerivative: true,
	}
	defaultPolicy = model.SourcePolicy{
		Name:            "default",
		AllowExamples:   true,
		MaxExcerptChars: 150,
		Restrictions:    []string{"unknown license", "short excerpts only"},
	}
)

// newsOutlets maps news domains to their attribution names
var newsOutlets = map[string]string{
	"reuters.com":        "Reuters",
	"apnews.com":         "Associated Press",
	"bbc.com":            "BBC",
	"bbc.co.uk":          "BBC",
	"nytimes.com":        "The New York Times",
	"theguardian.com":    "The Guardian",
	"washingtonpost.com": "The Washington Post",
	"bloomberg.com":      "Bloomberg",
	"cnn.com":            "CNN",
	"npr.org":            "NPR",
	"techcrunch.com":     "TechCrunch",
	"theverge.com":       "The Verge",
	"arstechnica.com":    "Ars Technica",
	"wired.com":          "Wired",
}

var socialDomains = []string{
	"twitter.com", "x.com", "facebook.com", "instagram.com", "tiktok.com",
	"reddit.com", "threads.net", "pinterest.com", "snapchat.com",
}

// PolicyTable resolves licensing policies by source domain
type PolicyTable struct {
	policies map[string]model.SourcePolicy
}

// NewPolicyTable builds the default table. Overrides replace or add entries
// keyed by domain.
func NewPolicyTable(overrides map[string]model.SourcePolicy) *PolicyTable {
	table := &PolicyTable{policies: make(map[string]model.SourcePolicy)}

	table.policies["wikipedia.org"] = encyclopedicPolicy
	table.policies["wikimedia.org"] = encyclopedicPolicy
	table.policies["wiktionary.org"] = dictionaryPolicy
	table.policies["youtube.com"] = videoPolicy
	table.policies["youtu.be"] = videoPolicy

	for domain, name := range newsOutlets {
		table.policies[domain] = model.SourcePolicy{
			Name:            "news",
			AllowExamples:   true,
			MaxExcerptChars: 200,
			Attribution:     name,
			Restrictions:    []string{"copyrighted", "fair use excerpts only"},
		}
	}
	for _, domain := range socialDomains {
		table.policies[domain] = socialPolicy
	}

	for domain, policy := range overrides {
		table.policies[strings.TrimPrefix(strings.ToLower(domain), "www.")] = policy
	}
	return table
}

// Resolve returns the policy for a source locator. Locators without a web
// host are local files.
func (p *PolicyTable) Resolve(locator string) model.SourcePolicy {
	domain := Domain(locator)
	if domain == localDomain {
		if policy, ok := p.policies[localDomain]; ok {
			return policy
		}
		return localPolicy
	}

	if policy, ok := p.policies[domain]; ok {
		return policy
	}

	// Longest suffix wins so en.m.wikipedia.org matches wikipedia.org
	var (
		best    model.SourcePolicy
		bestLen int
	)
	for known, policy := range p.policies {
		if strings.HasSuffix(domain, "."+known) && len(known) > bestLen {
			best, bestLen = policy, len(known)
		}
	}
	if bestLen > 0 {
		return best
	}
	return defaultPolicy
}

// Domain returns the lowercased host of a locator without port and "www."
// prefix, or "local" for file paths
func Domain(locator string) string {
	parsed, err := url.Parse(strings.TrimSpace(locator))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return localDomain
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// ApplyLicenseConstraints returns the excerpt allowed by the policy: empty
// when examples are not allowed, otherwise text cut at a word boundary to
// MaxExcerptChars with "..." appended. A MaxExcerptChars of 0 means no limit.
func ApplyLicenseConstraints(text string, policy model.SourcePolicy) string {
	if policy.Blocked || !policy.AllowExamples {
		return ""
	}
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if policy.MaxExcerptChars <= 0 || len(runes) <= policy.MaxExcerptChars {
		return text
	}

	cut := runes[:policy.MaxExcerptChars]
	if i := lastSpace(cut); i > 0 {
		cut = cut[:i]
	}
	trimmed := strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if trimmed == "" {
		return ""
	}
	return trimmed + "..."
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// Attribution formats the credit line for a policy, or "" when the policy
// declares none
func Attribution(policy model.SourcePolicy, domain string) string {
	if policy.Attribution == "" {
		return ""
	}
	return fmt.Sprintf("Source: %s (%s)", policy.Attribution, domain)
}
