package extract

import (
	"strings"

	"github.com/ppiankov/vocabmine/internal/model"
)

// Corpus is the extraction output for one job: the kept sentences, one
// candidate per unique phrase in first-seen order, and co-occurrence counts
type Corpus struct {
	Sentences    []string
	Candidates   []*model.Candidate
	Cooccurrence *Cooccurrence
	Tokens       int
	DocStarts    []int // Index of each document's first sentence
}

// DocumentOf returns the index of the document that sentence came from
func (c *Corpus) DocumentOf(sentence int) int {
	doc := 0
	for i, start := range c.DocStarts {
		if start > sentence {
			break
		}
		doc = i
	}
	return doc
}

// Lookup returns the candidate for phrase, or nil
func (c *Corpus) Lookup(phrase string) *model.Candidate {
	for _, cand := range c.Candidates {
		if cand.Phrase == phrase {
			return cand
		}
	}
	return nil
}

// Extractor turns text into candidates
type Extractor struct {
	minNgram int
	maxNgram int
	rules    []PatternRule
}

// NewExtractor creates an extractor for n-grams of length minNgram..maxNgram
func NewExtractor(minNgram, maxNgram int) *Extractor {
	if minNgram <= 0 {
		minNgram = 1
	}
	if maxNgram <= 0 {
		maxNgram = 5
	}
	if maxNgram < minNgram {
		maxNgram = minNgram
	}
	return &Extractor{
		minNgram: minNgram,
		maxNgram: maxNgram,
		rules:    DefaultRules,
	}
}

// Extract splits text into sentences, generates n-grams, drops stop-word
// heavy and purely numeric ones, and accumulates frequency, contexts and
// positions per phrase. Pattern scores are computed last, over each
// phrase's occurrence sentences.
func (e *Extractor) Extract(text string) *Corpus {
	return e.ExtractDocuments(text)
}

// ExtractDocuments extracts one corpus over several documents, recording
// where each document's sentences start
func (e *Extractor) ExtractDocuments(texts ...string) *Corpus {
	corpus := &Corpus{
		Cooccurrence: NewCooccurrence(),
		DocStarts:    make([]int, 0, len(texts)),
	}
	byPhrase := make(map[string]*model.Candidate)
	var normalized []string

	var sentences []string
	for _, text := range texts {
		corpus.DocStarts = append(corpus.DocStarts, len(sentences))
		for _, sentence := range SplitSentences(text) {
			if len(Tokenize(sentence)) > 0 {
				sentences = append(sentences, sentence)
			}
		}
	}

	for _, sentence := range sentences {
		tokens := Tokenize(sentence)

		sentenceIdx := len(corpus.Sentences)
		corpus.Sentences = append(corpus.Sentences, sentence)
		normalized = append(normalized, NormalizeSentence(sentence))
		corpus.Cooccurrence.AddSentence(tokens)
		corpus.Tokens += len(tokens)

		for n := e.minNgram; n <= e.maxNgram && n <= len(tokens); n++ {
			for start := 0; start+n <= len(tokens); start++ {
				gram := tokens[start : start+n]
				if IsStopWordHeavy(gram) || allNumeric(gram) {
					continue
				}

				phrase := strings.Join(gram, " ")
				cand, ok := byPhrase[phrase]
				if !ok {
					cand = &model.Candidate{Phrase: phrase, NgramLength: n}
					byPhrase[phrase] = cand
					corpus.Candidates = append(corpus.Candidates, cand)
				}
				cand.Scores.Freq++
				cand.OccurrenceContexts = append(cand.OccurrenceContexts, sentence)
				cand.Positions = append(cand.Positions, model.Position{
					Start:    start,
					End:      start + n,
					Sentence: sentenceIdx,
				})
			}
		}
	}

	for _, cand := range corpus.Candidates {
		cand.Scores.Pattern = scoreNormalized(e.rules, cand.Phrase, occurrenceSentences(cand, normalized))
	}

	return corpus
}

func allNumeric(tokens []string) bool {
	for _, t := range tokens {
		if !isNumeric(t) {
			return false
		}
	}
	return true
}

// occurrenceSentences returns the distinct normalized sentences a candidate occurs in
func occurrenceSentences(cand *model.Candidate, normalized []string) []string {
	out := make([]string, 0, len(cand.Positions))
	last := -1
	for _, pos := range cand.Positions {
		if pos.Sentence == last {
			continue
		}
		last = pos.Sentence
		out = append(out, normalized[pos.Sentence])
	}
	return out
}
