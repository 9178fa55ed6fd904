package validate

import "testing"

func TestCleanText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		desc     string
	}{
		{"Visit https://example.com/page?x=1 for more", "Visit [URL] for more", "URL"},
		{"See www.example.org today", "See [URL] today", "Bare www URL"},
		{"Contact john.doe@example.com today", "Contact [EMAIL] today", "Email"},
		{"Call 555-123-4567 now", "Call [PHONE] now", "Dashed phone"},
		{"Call (555) 123-4567 now", "Call [PHONE] now", "Parenthesized area code"},
		{"Call +1 555 123 4567 now", "Call [PHONE] now", "International prefix"},
		{"Wow!!! Really???", "Wow! Really?", "Repeated punctuation"},
		{"Wait.......   what", "Wait... what", "Long ellipsis and whitespace"},
		{"Between 1990-2000 there were 3 events.", "Between 1990-2000 there were 3 events.", "Year ranges are not phones"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
