package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minSentenceChars is the shortest fragment kept as a sentence
const minSentenceChars = 11

// SplitSentences splits text on sentence terminators and line breaks.
// A terminator only ends a sentence when followed by whitespace or the end
// of text, so "3.14" and "example.com" stay intact. Fragments of 10
// characters or fewer are discarded.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.Join(strings.Fields(current.String()), " ")
		if utf8.RuneCountInString(sentence) >= minSentenceChars {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()

	return sentences
}
