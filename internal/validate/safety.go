package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/vocabmine/internal/model"
)

// SafetyResult is the classification of one piece of text
type SafetyResult struct {
	IsSafe           bool     `json:"is_safe"`
	IsBlocked        bool     `json:"is_blocked"`
	IsSensitive      bool     `json:"is_sensitive"`
	BlockedReasons   []string `json:"blocked_reasons,omitempty"`
	SensitiveReasons []string `json:"sensitive_reasons,omitempty"`
	ConfidenceScore  float64  `json:"confidence_score"`
}

// Status maps the result onto the emitted safety status
func (r SafetyResult) Status() model.SafetyStatus {
	switch {
	case r.IsBlocked:
		return model.SafetyBlocked
	case r.IsSensitive:
		return model.SafetySensitiveAllowed
	default:
		return model.SafetySafe
	}
}

// category is a named list of word-boundary patterns
type category struct {
	name    string
	pattern *regexp.Regexp
}

func newCategory(name string, terms ...string) category {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return category{
		name:    name,
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

var blockedCategories = []category{
	newCategory("explicit",
		"nsfw", "porn", "porno", "pornography", "pornographic", "xxx", "nude", "nudes", "nudity",
		"hentai", "erotic", "erotica", "onlyfans", "sexually explicit", "camgirl"),
	newCategory("violence",
		"kill yourself", "kys", "make a bomb", "build a bomb", "bomb making", "behead", "beheading",
		"mass shooting", "shoot up", "suicide method", "suicide methods", "how to kill"),
	newCategory("spam",
		"click here", "buy now", "free money", "act now", "limited time offer", "100% free",
		"earn money fast", "make money fast", "crypto giveaway", "wire transfer", "casino bonus",
		"viagra", "cialis", "nigerian prince", "double your bitcoin"),
}

var sensitiveCategories = []category{
	newCategory("medical",
		"diagnosis", "diagnose", "prescription", "dosage", "medication", "overdose", "symptoms",
		"treatment", "therapy", "suicide", "self-harm", "depression", "chemotherapy"),
	newCategory("legal",
		"legal advice", "lawsuit", "attorney", "liability", "litigation", "sue", "custody", "indictment"),
	newCategory("financial",
		"investment advice", "financial advice", "guaranteed returns", "tax advice"),
}

// Classify checks text against the blocked and sensitive categories. In
// strict mode sensitive text is not considered safe.
func Classify(text string, strict bool) SafetyResult {
	var result SafetyResult

	for _, c := range blockedCategories {
		if c.pattern.MatchString(text) {
			result.BlockedReasons = append(result.BlockedReasons, c.name)
		}
	}
	if suspiciousCharacters(text) {
		result.BlockedReasons = append(result.BlockedReasons, "suspicious_characters")
	}
	for _, c := range sensitiveCategories {
		if c.pattern.MatchString(text) {
			result.SensitiveReasons = append(result.SensitiveReasons, c.name)
		}
	}

	result.IsBlocked = len(result.BlockedReasons) > 0
	result.IsSensitive = len(result.SensitiveReasons) > 0
	result.IsSafe = !result.IsBlocked && !(strict && result.IsSensitive)

	switch {
	case result.IsBlocked:
		result.ConfidenceScore = min(1.0, 0.7+0.1*float64(len(result.BlockedReasons)))
	case result.IsSensitive:
		result.ConfidenceScore = 0.8
	default:
		result.ConfidenceScore = 0.9
	}
	return result
}

// IsSafe reports whether text passes the non-strict check
func IsSafe(text string) bool {
	return Classify(text, false).IsSafe
}

// suspiciousCharacters flags symbol runs of 5 or more, or text longer than
// 20 characters where symbols make up over 30%
func suspiciousCharacters(text string) bool {
	symbols, total, run := 0, 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			run = 0
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(".,'\"-()", r) {
			run = 0
			continue
		}
		symbols++
		run++
		if run >= 5 {
			return true
		}
	}
	return total > 20 && float64(symbols)/float64(total) > 0.3
}
