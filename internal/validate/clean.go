package validate

import (
	"regexp"
	"strings"
)

var (
	urlPattern   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"]+`)
	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{3}\)\s?|\b\d{3}[\s.-])\d{3}[\s.-]\d{4}\b`)

	repeatedPunctuation = []struct {
		pattern *regexp.Regexp
		replace string
	}{
		{regexp.MustCompile(`!{2,}`), "!"},
		{regexp.MustCompile(`\?{2,}`), "?"},
		{regexp.MustCompile(`,{2,}`), ","},
		{regexp.MustCompile(`;{2,}`), ";"},
		{regexp.MustCompile(`\.{4,}`), "..."},
	}
)

// CleanText redacts URLs, emails and phone numbers with placeholder tokens
// and collapses repeated punctuation and whitespace
func CleanText(text string) string {
	text = emailPattern.ReplaceAllString(text, "[EMAIL]")
	text = urlPattern.ReplaceAllString(text, "[URL]")
	text = phonePattern.ReplaceAllString(text, "[PHONE]")
	for _, rp := range repeatedPunctuation {
		text = rp.pattern.ReplaceAllString(text, rp.replace)
	}
	return strings.Join(strings.Fields(text), " ")
}
