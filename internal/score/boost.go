package score

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/kljensen/snowball"

	"github.com/ppiankov/vocabmine/internal/model"
)

// RecencyMultiplier decays exponentially from peak for brand-new content to
// 1 at maxAge. Unknown or future ages are treated as new; ages past the
// horizon give 1.
func RecencyMultiplier(age, maxAge time.Duration, peak float64) float64 {
	if peak <= 1 || maxAge <= 0 {
		return 1
	}
	if age < 0 {
		age = 0
	}
	if age >= maxAge {
		return 1
	}
	ratio := float64(age) / float64(maxAge)
	return 1 + (peak-1)*math.Exp(-3*ratio)
}

var breakingHosts = []string{
	"reuters.com", "apnews.com", "bbc.co.uk", "bbc.com", "cnn.com", "bloomberg.com",
	"techcrunch.com", "theverge.com", "news.ycombinator.com", "arstechnica.com",
}

var breakingKeywords = []string{
	"breaking", "just announced", "announces", "announced today", "launches",
	"unveils", "live updates", "developing story", "this week", "today",
}

// BreakingFactor returns 1..1.5 from news-source and headline keyword signals
func BreakingFactor(sourceURL, title string) float64 {
	factor := 1.0

	host := ""
	if parsed, err := url.Parse(sourceURL); err == nil {
		host = strings.ToLower(parsed.Hostname())
	}
	for _, h := range breakingHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			factor += 0.2
			break
		}
	}

	lower := strings.ToLower(title)
	for _, kw := range breakingKeywords {
		if strings.Contains(lower, kw) {
			factor += 0.3
			break
		}
	}
	return factor
}

// trendingStems are stemmed tech, funding and research words
var trendingStems = stemSet(
	"launch", "release", "announce", "startup", "funding", "raise", "investment",
	"valuation", "acquisition", "ipo", "venture", "research", "study", "paper",
	"breakthrough", "benchmark", "model", "open-source", "ai", "llm", "agent",
	"quantum", "robotics", "chip", "semiconductor",
)

func stemSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[stem(w)] = struct{}{}
	}
	return set
}

func stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// TrendingFactor returns 1..1.5 from the density of trending vocabulary in
// the sentences around a candidate
func TrendingFactor(contexts []string) float64 {
	return trendingFactor(contexts, sentenceTrend)
}

func trendingFactor(contexts []string, counter func(string) trendCount) float64 {
	var sum trendCount
	for _, sentence := range contexts {
		c := counter(sentence)
		sum.words += c.words
		sum.hits += c.hits
	}
	if sum.words == 0 {
		return 1
	}
	return 1 + math.Min(0.5, 5*float64(sum.hits)/float64(sum.words))
}

type trendCount struct {
	words int
	hits  int
}

func sentenceTrend(sentence string) trendCount {
	var c trendCount
	for _, word := range strings.Fields(strings.ToLower(sentence)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if word == "" {
			continue
		}
		c.words++
		if _, ok := trendingStems[stem(word)]; ok {
			c.hits++
		}
	}
	return c
}

// Boost computes per-candidate freshness multipliers for one document
type Boost struct {
	recency  float64
	breaking float64
	cap      float64
	trends   map[string]trendCount
}

// NewBoost prepares the document-level factors. A nil published time
// gives recency 1.
func NewBoost(opts model.RecencyOptions, doc *model.Document, now time.Time) *Boost {
	recency := 1.0
	if doc.PublishedAt != nil {
		recency = RecencyMultiplier(now.Sub(*doc.PublishedAt), opts.MaxAge, opts.PeakBoost)
	}
	peak := opts.PeakBoost
	if peak < 1 {
		peak = 1
	}
	return &Boost{
		recency:  recency,
		breaking: BreakingFactor(doc.URL, doc.Title),
		cap:      2 * peak,
		trends:   make(map[string]trendCount),
	}
}

// Apply multiplies the candidate's final score by the combined factor and
// records the factors. The combined multiplier is capped at twice the peak.
func (b *Boost) Apply(c *model.Candidate) {
	trending := trendingFactor(c.OccurrenceContexts, b.sentenceTrend)
	multiplier := math.Min(b.recency*b.breaking*trending, b.cap)

	c.Scores.RecencyMultiplier = model.Float(b.recency)
	c.Scores.Breaking = model.Float(b.breaking)
	c.Scores.Trending = model.Float(trending)
	c.Scores.Final = model.Float(c.Scores.FinalScore() * multiplier)
}

// sentenceTrend memoizes per-sentence counts; candidates share sentences
func (b *Boost) sentenceTrend(sentence string) trendCount {
	if c, ok := b.trends[sentence]; ok {
		return c
	}
	c := sentenceTrend(sentence)
	b.trends[sentence] = c
	return c
}
