package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenize lowercases a sentence and splits it into word tokens.
// Punctuation is dropped; inner hyphens are kept ("state-of-the-art") and
// possessive 's is removed.
func Tokenize(sentence string) []string {
	sentence = norm.NFKC.String(sentence)

	var tokens []string
	var current strings.Builder

	emit := func() {
		if current.Len() == 0 {
			return
		}
		if token := cleanToken(current.String()); token != "" {
			tokens = append(tokens, token)
		}
		current.Reset()
	}

	for _, r := range sentence {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '\'' || r == '’':
			current.WriteRune(unicode.ToLower(r))
		default:
			emit()
		}
	}
	emit()

	return tokens
}

// cleanToken trims hyphens, strips possessives and removes apostrophes
func cleanToken(token string) string {
	token = strings.TrimSuffix(token, "'s")
	token = strings.TrimSuffix(token, "’s")
	token = strings.NewReplacer("'", "", "’", "").Replace(token)
	token = strings.Trim(token, "-")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

// NormalizeSentence lowercases and collapses whitespace while keeping
// punctuation, for pattern matching against candidate phrases. In-word
// apostrophes and possessive 's are dropped the way Tokenize drops them.
func NormalizeSentence(sentence string) string {
	folded := foldApostrophes(strings.ToLower(norm.NFKC.String(sentence)))
	return strings.Join(strings.Fields(folded), " ")
}

// foldApostrophes removes apostrophes that follow a word character, along
// with a possessive s that ends the word. Opening quotes are kept.
func foldApostrophes(s string) string {
	if !strings.ContainsAny(s, "'’") {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '\'' || r == '’') && i > 0 && isWordRune(runes[i-1]) {
			if i+1 < len(runes) && runes[i+1] == 's' && (i+2 == len(runes) || !isWordRune(runes[i+2])) {
				i++
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NGrams returns every contiguous n-token phrase of tokens
func NGrams(tokens []string, n int) []string {
	if n <= 0 || n > len(tokens) {
		return nil
	}
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+n], " "))
	}
	return grams
}

func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) && r != '-' && r != '.' {
			return false
		}
	}
	return true
}
