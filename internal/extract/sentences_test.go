package extract

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "terminators",
			input:    "Go is a programming language. Is it? It compiles quickly!",
			expected: []string{"Go is a programming language.", "It compiles quickly!"},
		},
		{
			name:     "short fragments dropped",
			input:    "Too short. This one is long enough to keep.",
			expected: []string{"This one is long enough to keep."},
		},
		{
			name:     "decimals and domains stay intact",
			input:    "Pi is roughly 3.14 according to example.com today.",
			expected: []string{"Pi is roughly 3.14 according to example.com today."},
		},
		{
			name:     "newlines end sentences",
			input:    "Title: Vector search basics\nEmbeddings map text to vectors",
			expected: []string{"Title: Vector search basics", "Embeddings map text to vectors"},
		},
		{
			name:     "whitespace collapsed",
			input:    "Spaces    inside   this sentence.",
			expected: []string{"Spaces inside this sentence."},
		},
		{
			name:     "empty",
			input:    "   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
