package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PatternRule is one definition-style signal. Match receives the lowercased
// phrase and a sentence normalized with NormalizeSentence.
type PatternRule struct {
	Name      string
	Increment float64
	Match     func(phrase, sentence string) bool
}

// DefaultRules is the pattern table, in evaluation order
var DefaultRules = []PatternRule{
	{Name: "copular", Increment: 0.5, Match: matchCopular},
	{Name: "appositive", Increment: 0.4, Match: matchAppositive},
	{Name: "called", Increment: 0.4, Match: matchCalled},
	{Name: "gloss", Increment: 0.3, Match: matchGloss},
	{Name: "definitional_keyword", Increment: 0.2, Match: matchDefinitionalKeyword},
	{Name: "technical_domain", Increment: 0.1, Match: matchTechnical},
}

var (
	copulas            = []string{"is ", "are ", "was ", "were "}
	namingLeads        = []string{"called", "known as", "termed", "referred to as", "named", "dubbed"}
	articles           = []string{"the", "a", "an"}
	glossOpeners       = []string{"(", "- ", "– ", "— ", "--"}
	definitionalPhrase = []string{
		"define", "definition", "means", "meaning", "refers to", "referring to",
		"denote", "stands for", "is a type of", "is a kind of", "is a form of", "describes",
	}
	technicalWords = makeSet(
		"algorithm", "algorithms", "method", "methods", "technique", "techniques",
		"framework", "frameworks", "model", "models", "system", "systems", "protocol",
		"protocols", "architecture", "process", "approach", "library", "platform",
		"network", "networks", "data", "software", "computing", "engine", "standard",
	)
)

// AnalyzePatterns scores one sentence against the rule table. The result
// is the sum of matching increments, capped at 1.
func AnalyzePatterns(phrase, sentence string) float64 {
	return ScorePatterns(DefaultRules, phrase, []string{sentence})
}

// ScorePatterns scores a phrase over all of its occurrence sentences.
// Each rule contributes its increment once if any sentence matches it.
func ScorePatterns(rules []PatternRule, phrase string, sentences []string) float64 {
	normalized := make([]string, len(sentences))
	for i, s := range sentences {
		normalized[i] = NormalizeSentence(s)
	}
	return scoreNormalized(rules, strings.ToLower(phrase), normalized)
}

func scoreNormalized(rules []PatternRule, phrase string, normalized []string) float64 {
	score := 0.0
	for _, rule := range rules {
		for _, s := range normalized {
			if rule.Match(phrase, s) {
				score += rule.Increment
				break
			}
		}
	}
	if score > 1 {
		return 1
	}
	return score
}

// MatchedRules lists the names of the rules a sentence satisfies
func MatchedRules(phrase, sentence string) []string {
	phrase = strings.ToLower(phrase)
	sentence = NormalizeSentence(sentence)

	var names []string
	for _, rule := range DefaultRules {
		if rule.Match(phrase, sentence) {
			names = append(names, rule.Name)
		}
	}
	return names
}

// matchCopular: "X is/are/was/were ..."
func matchCopular(phrase, sentence string) bool {
	for _, idx := range occurrences(sentence, phrase) {
		after := strings.TrimLeft(sentence[idx+len(phrase):], " ")
		if hasAnyPrefix(after, copulas) {
			return true
		}
	}
	return false
}

// matchAppositive: "X, a thing that ..., ..."
func matchAppositive(phrase, sentence string) bool {
	for _, idx := range occurrences(sentence, phrase) {
		after := strings.TrimLeft(sentence[idx+len(phrase):], " ")
		if !strings.HasPrefix(after, ",") {
			continue
		}
		rest := after[1:]
		if end := strings.Index(rest, ","); end > 1 {
			return true
		}
	}
	return false
}

// matchCalled: "... called/known as/termed X"
func matchCalled(phrase, sentence string) bool {
	for _, idx := range occurrences(sentence, phrase) {
		before := strings.TrimRight(sentence[:idx], " \"'“")
		for _, article := range articles {
			if strings.HasSuffix(before, " "+article) {
				before = strings.TrimRight(strings.TrimSuffix(before, article), " ")
				break
			}
		}
		for _, lead := range namingLeads {
			if before == lead || strings.HasSuffix(before, " "+lead) || strings.HasSuffix(before, ","+lead) {
				return true
			}
		}
	}
	return false
}

// matchGloss: "X (gloss)", "X - gloss", "gloss (X)"
func matchGloss(phrase, sentence string) bool {
	for _, idx := range occurrences(sentence, phrase) {
		after := strings.TrimLeft(sentence[idx+len(phrase):], " ")
		if hasAnyPrefix(after, glossOpeners) {
			return true
		}
		before := strings.TrimRight(sentence[:idx], " ")
		if strings.HasSuffix(before, "(") && strings.HasPrefix(after, ")") {
			return true
		}
	}
	return false
}

// matchDefinitionalKeyword: a definitional verb in a sentence containing X
func matchDefinitionalKeyword(phrase, sentence string) bool {
	if len(occurrences(sentence, phrase)) == 0 {
		return false
	}
	for _, kw := range definitionalPhrase {
		if strings.Contains(sentence, kw) {
			return true
		}
	}
	return false
}

// matchTechnical: a technical-domain indicator word in a sentence containing X
func matchTechnical(phrase, sentence string) bool {
	if len(occurrences(sentence, phrase)) == 0 {
		return false
	}
	for _, token := range strings.FieldsFunc(sentence, func(r rune) bool { return !isWordRune(r) }) {
		if _, ok := technicalWords[token]; ok && !strings.Contains(" "+phrase+" ", " "+token+" ") {
			return true
		}
	}
	return false
}

// occurrences returns byte offsets where phrase appears on word boundaries
func occurrences(sentence, phrase string) []int {
	if phrase == "" {
		return nil
	}
	var found []int
	offset := 0
	for {
		idx := strings.Index(sentence[offset:], phrase)
		if idx < 0 {
			return found
		}
		start := offset + idx
		end := start + len(phrase)
		if boundaryBefore(sentence, start) && boundaryAfter(sentence, end) {
			found = append(found, start)
		}
		offset = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-'
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
