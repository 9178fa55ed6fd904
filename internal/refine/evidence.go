package refine

import (
	"strings"

	"github.com/ppiankov/vocabmine/internal/extract"
	"github.com/ppiankov/vocabmine/internal/model"
)

// ExtractContextEvidence finds the first sentence mentioning term and keeps
// window sentences on each side. When the term never appears the first
// 2*window+1 sentences are used and TargetPosition is -1.
func ExtractContextEvidence(text, term string, window int) model.ContextEvidence {
	if window < 0 {
		window = 0
	}
	sentences := extract.SplitSentences(text)
	needle := strings.ToLower(strings.Join(strings.Fields(term), " "))

	target := -1
	if needle != "" {
		for i, s := range sentences {
			if strings.Contains(extract.NormalizeSentence(s), needle) {
				target = i
				break
			}
		}
	}

	evidence := model.ContextEvidence{TargetPosition: target}
	if target < 0 {
		evidence.ContextSentences = head(sentences, 2*window+1)
	} else {
		lo := max(0, target-window)
		hi := min(len(sentences), target+window+1)
		evidence.TargetSentence = sentences[target]
		evidence.ContextSentences = append([]string(nil), sentences[lo:hi]...)
	}
	if evidence.ContextSentences == nil {
		evidence.ContextSentences = []string{}
	}
	evidence.FullContext = strings.Join(evidence.ContextSentences, " ")
	return evidence
}

func head(sentences []string, n int) []string {
	if n > len(sentences) {
		n = len(sentences)
	}
	return append([]string(nil), sentences[:n]...)
}
