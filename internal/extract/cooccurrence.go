package extract

import "sort"

// TokenPair is an unordered token pair stored with T1 <= T2
type TokenPair struct {
	T1, T2 string
}

// Cooccurrence counts, per sentence, which tokens and token pairs appear.
// Sentences play the role of documents for PMI.
type Cooccurrence struct {
	N   int
	Nx  map[string]int
	Nxy map[TokenPair]int
}

// NewCooccurrence creates an empty counter
func NewCooccurrence() *Cooccurrence {
	return &Cooccurrence{
		Nx:  make(map[string]int),
		Nxy: make(map[TokenPair]int),
	}
}

// AddSentence records one sentence's distinct tokens
func (c *Cooccurrence) AddSentence(tokens []string) {
	c.N++

	seen := make(map[string]struct{}, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
		c.Nx[t]++
	}

	sort.Strings(unique)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			c.Nxy[TokenPair{T1: unique[i], T2: unique[j]}]++
		}
	}
}

// PairCount returns the number of sentences containing both tokens
func (c *Cooccurrence) PairCount(t1, t2 string) int {
	if t1 == t2 {
		return c.Nx[t1]
	}
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return c.Nxy[TokenPair{T1: t1, T2: t2}]
}

// TokenCount returns the number of sentences containing t
func (c *Cooccurrence) TokenCount(t string) int {
	return c.Nx[t]
}
