package model

// Candidate is a unique surface phrase accumulated during extraction
type Candidate struct {
	Phrase             string     `json:"phrase"`       // Lowercased, whitespace-collapsed
	NgramLength        int        `json:"ngram_length"`
	OccurrenceContexts []string   `json:"occurrence_contexts"` // One sentence per occurrence
	Positions          []Position `json:"positions"`
	Scores             Scores     `json:"scores"`
}

// Position locates one occurrence as a token span within a sentence
type Position struct {
	Start    int `json:"start"`    // Token index, inclusive
	End      int `json:"end"`      // Token index, exclusive
	Sentence int `json:"sentence"` // Sentence index in the corpus
}

// Scores holds the signals set by the extractor and the ranker.
// Pointer fields are nil until the ranker computes them.
type Scores struct {
	Freq              int      `json:"freq"`
	Pattern           float64  `json:"pattern"`
	CValue            *float64 `json:"c_value,omitempty"`
	PMI               *float64 `json:"pmi,omitempty"`
	Final             *float64 `json:"final,omitempty"`
	RecencyMultiplier *float64 `json:"recency_multiplier,omitempty"`
	Trending          *float64 `json:"trending,omitempty"`
	Breaking          *float64 `json:"breaking,omitempty"`
}

// FinalScore returns the final score, or 0 before ranking
func (s Scores) FinalScore() float64 {
	if s.Final == nil {
		return 0
	}
	return *s.Final
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
