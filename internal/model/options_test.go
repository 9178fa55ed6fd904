package model

import (
	"errors"
	"testing"
)

func TestMiningOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *MiningOptions)
		wantErr bool
	}{
		{"defaults", func(o *MiningOptions) {}, false},
		{"negative max terms", func(o *MiningOptions) { o.MaxTerms = -1 }, true},
		{"negative word limit", func(o *MiningOptions) { o.MaxDefinitionWords = -5 }, true},
		{"confidence above one", func(o *MiningOptions) { o.MinConfidence = 1.5 }, true},
		{"inverted ngram bounds", func(o *MiningOptions) { o.MinNgram, o.MaxNgram = 4, 2 }, true},
		{"negative weight", func(o *MiningOptions) { o.Weights.PMI = -0.1 }, true},
		{"zero limits allowed", func(o *MiningOptions) { o.MaxTerms, o.MinFreq = 0, 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultMiningOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestMiningOptions_WithDefaults(t *testing.T) {
	opts := MiningOptions{MinFreq: 1}.WithDefaults()

	if opts.MaxCandidates != 200 {
		t.Errorf("Expected max candidates 200, got %d", opts.MaxCandidates)
	}
	if opts.MaxNgram != 5 {
		t.Errorf("Expected max ngram 5, got %d", opts.MaxNgram)
	}
	if opts.Weights != DefaultWeights() {
		t.Errorf("Expected default weights, got %+v", opts.Weights)
	}
	if opts.MinFreq != 1 {
		t.Errorf("Expected explicit min freq to survive, got %d", opts.MinFreq)
	}
	if opts.MinConfidence != 0.7 {
		t.Errorf("Expected default min confidence 0.7, got %v", opts.MinConfidence)
	}

	explicit := MiningOptions{MinConfidence: 0.4}.WithDefaults()
	if explicit.MinConfidence != 0.4 {
		t.Errorf("Expected explicit min confidence to survive, got %v", explicit.MinConfidence)
	}
}

func TestParseSourceType(t *testing.T) {
	tests := map[string]SourceType{
		"rss":        SourceRSS,
		"file":       SourceFile,
		"wiktionary": SourceWiktionary,
		"":           SourceHTML,
		"gopher":     SourceHTML,
	}
	for in, want := range tests {
		if got := ParseSourceType(in); got != want {
			t.Errorf("ParseSourceType(%q): expected %s, got %s", in, want, got)
		}
	}
}
