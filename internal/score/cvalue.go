package score

import (
	"math"
	"strings"
)

// CValue scores a phrase by length and nestedness:
//
//	log2(words) * (freq - longerFreqSum/longerCount)
//
// where the longer terms are candidates that contain the phrase. The
// penalty is 0 when no longer term exists. Negative values clamp to 0.
func CValue(phrase string, freq, longerFreqSum, longerCount int) float64 {
	words := len(strings.Fields(phrase))
	if words == 0 {
		return 0
	}

	penalty := 0.0
	if longerCount > 0 {
		penalty = float64(longerFreqSum) / float64(longerCount)
	}

	cv := math.Log2(float64(words)) * (float64(freq) - penalty)
	if cv < 0 {
		return 0
	}
	return cv
}

// nesting accumulates, per phrase, the frequencies of the longer phrases containing it
type nesting struct {
	sum   int
	count int
}

// nestedTotals indexes every contiguous sub-phrase of each phrase. A longer
// phrase is counted once per contained sub-phrase even if it repeats inside.
func nestedTotals(freqs map[string]int) map[string]nesting {
	totals := make(map[string]nesting)
	for phrase, freq := range freqs {
		tokens := strings.Fields(phrase)
		seen := make(map[string]struct{})
		for n := 1; n < len(tokens); n++ {
			for start := 0; start+n <= len(tokens); start++ {
				sub := strings.Join(tokens[start:start+n], " ")
				if _, ok := seen[sub]; ok {
					continue
				}
				seen[sub] = struct{}{}
				t := totals[sub]
				t.sum += freq
				t.count++
				totals[sub] = t
			}
		}
	}
	return totals
}
