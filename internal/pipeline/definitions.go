package pipeline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// definitionRule extracts a definition from a sentence that mentions the
// phrase. Rules are tried in order; the first match wins.
type definitionRule struct {
	name    string
	pattern func(phrase string) string // regexp source; group 1 is the definition
	whole   bool                       // use the whole sentence instead of group 1
}

var definitionRules = []definitionRule{
	{name: "definitional_keyword", pattern: func(p string) string {
		return `(?i)\b` + p + `\b\s+(?:means|refers to|denotes|stands for|is defined as|are defined as)\s+(.+)`
	}},
	{name: "copular", pattern: func(p string) string {
		return `(?i)\b` + p + `\b\s+(?:is|are|was|were)\s+(.+)`
	}},
	{name: "appositive", pattern: func(p string) string {
		return `(?i)\b` + p + `\b\s*,\s*((?:a|an|the)\s+[^,]+),`
	}},
	{name: "gloss", pattern: func(p string) string {
		return `(?i)\b` + p + `\b\s*(?:\(([^)]+)\)|(?:--|[-–—])\s+([^.;]+))`
	}},
	{name: "called", whole: true, pattern: func(p string) string {
		return `(?i)\b(?:called|known as|termed|referred to as)\s+(?:the\s+|a\s+|an\s+)?` + p + `\b`
	}},
}

// phrasePattern matches the phrase tokens separated by whitespace or
// hyphens. Tokens lose apostrophes and possessive 's when tokenized, so
// both may reappear inside or after each token.
func phrasePattern(phrase string) string {
	tokens := strings.Fields(phrase)
	for i, t := range tokens {
		chars := make([]string, 0, len(t))
		for _, r := range t {
			chars = append(chars, regexp.QuoteMeta(string(r)))
		}
		tokens[i] = strings.Join(chars, apostrophe+`?`) + `(?:` + apostrophe + `s?)?`
	}
	return `(?:` + strings.Join(tokens, `[\s-]+`) + `)`
}

const apostrophe = `['’]`

// minDefinitionWords rejects fragments like "it." as definitions
const minDefinitionWords = 2

// findDefinition returns the first definition found in sentences and the
// sentence it came from
func findDefinition(phrase string, sentences []string) (definition, sentence string) {
	p := phrasePattern(phrase)
	for _, rule := range definitionRules {
		re, err := regexp.Compile(rule.pattern(p))
		if err != nil {
			continue
		}
		for _, s := range sentences {
			m := re.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			if rule.whole {
				return normalizeDefinition(s), s
			}
			body := firstGroup(m)
			if len(strings.Fields(body)) < minDefinitionWords {
				continue
			}
			return normalizeDefinition(body), s
		}
	}
	return "", ""
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if strings.TrimSpace(g) != "" {
			return g
		}
	}
	return ""
}

// normalizeDefinition capitalizes the first letter and ends with a period
func normalizeDefinition(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimRight(text, " ,;:-")
	if text == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(r)) + text[size:]
	if !strings.ContainsAny(text[len(text)-1:], ".!?") {
		text += "."
	}
	return text
}

// pickExample returns the first distinct occurrence sentence other than the
// definition sentence
func pickExample(contexts []string, definitionSentence string) string {
	for _, s := range contexts {
		if s != definitionSentence {
			return s
		}
	}
	return ""
}
