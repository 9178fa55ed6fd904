package score

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/vocabmine/internal/extract"
	"github.com/ppiankov/vocabmine/internal/model"
)

// Ranker blends frequency, C-value, PMI and pattern signals into a final
// score. Normalizers are recomputed from each corpus.
type Ranker struct {
	opts model.MiningOptions
	now  func() time.Time
}

// NewRanker creates a ranker; zero-valued options take their defaults
func NewRanker(opts model.MiningOptions) *Ranker {
	return &Ranker{
		opts: opts.WithDefaults(),
		now:  time.Now,
	}
}

// WithClock replaces the time source used for recency
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	r.now = now
	return r
}

// Rank filters, scores, sorts and truncates the corpus candidates. doc
// supplies the freshness signals when recency boosting is enabled and may
// be nil otherwise.
func (r *Ranker) Rank(corpus *extract.Corpus, doc *model.Document) []*model.Candidate {
	candidates := r.filter(corpus.Candidates)
	if len(candidates) == 0 {
		return []*model.Candidate{}
	}

	freqs := make(map[string]int, len(candidates))
	for _, c := range candidates {
		freqs[c.Phrase] = c.Scores.Freq
	}
	nested := nestedTotals(freqs)

	// 1. Corpus normalizers
	maxFreq, maxCValue := 0, 0.0
	for _, c := range candidates {
		n := nested[c.Phrase]
		cv := CValue(c.Phrase, c.Scores.Freq, n.sum, n.count)
		c.Scores.CValue = model.Float(cv)
		if c.Scores.Freq > maxFreq {
			maxFreq = c.Scores.Freq
		}
		if cv > maxCValue {
			maxCValue = cv
		}
	}

	// 2. Association and blend
	w := r.opts.Weights
	for _, c := range candidates {
		pmi := r.pmi(corpus, c)
		c.Scores.PMI = model.Float(pmi)

		final := w.Freq*math.Sqrt(float64(c.Scores.Freq)/float64(maxFreq)) +
			w.PMI*(pmi/MaxPMI) +
			w.Pattern*c.Scores.Pattern
		if maxCValue > 0 {
			final += w.CValue * (*c.Scores.CValue / maxCValue)
		}
		c.Scores.Final = model.Float(final)
	}

	// 3. Freshness
	if r.opts.Recency.Enabled && doc != nil {
		boost := NewBoost(r.opts.Recency, doc, r.now())
		for _, c := range candidates {
			boost.Apply(c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Scores.FinalScore() != b.Scores.FinalScore() {
			return a.Scores.FinalScore() > b.Scores.FinalScore()
		}
		if a.Scores.Freq != b.Scores.Freq {
			return a.Scores.Freq > b.Scores.Freq
		}
		return a.Phrase < b.Phrase
	})

	if r.opts.MaxCandidates > 0 && len(candidates) > r.opts.MaxCandidates {
		candidates = candidates[:r.opts.MaxCandidates]
	}
	return candidates
}

func (r *Ranker) filter(all []*model.Candidate) []*model.Candidate {
	kept := make([]*model.Candidate, 0, len(all))
	for _, c := range all {
		if r.opts.MinFreq > 0 && c.Scores.Freq < r.opts.MinFreq {
			continue
		}
		if c.NgramLength < r.opts.MinNgram || c.NgramLength > r.opts.MaxNgram {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// pmi measures association between the first and last token of a
// multi-word phrase over sentence co-occurrence. Single words score 0.
func (r *Ranker) pmi(corpus *extract.Corpus, c *model.Candidate) float64 {
	if c.NgramLength < 2 || corpus.Cooccurrence == nil {
		return 0
	}
	tokens := strings.Fields(c.Phrase)
	first, last := tokens[0], tokens[len(tokens)-1]
	cooc := corpus.Cooccurrence
	return PMI(cooc.PairCount(first, last), cooc.TokenCount(first), cooc.TokenCount(last), cooc.N)
}
