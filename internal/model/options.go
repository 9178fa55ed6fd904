package model

import (
	"fmt"
	"time"
)

// Weights are the blend coefficients of the final candidate score
type Weights struct {
	Freq    float64 `json:"freq" yaml:"freq"`
	CValue  float64 `json:"c_value" yaml:"c_value"`
	PMI     float64 `json:"pmi" yaml:"pmi"`
	Pattern float64 `json:"pattern" yaml:"pattern"`
}

// DefaultWeights returns the 0.4/0.3/0.2/0.1 blend
func DefaultWeights() Weights {
	return Weights{Freq: 0.4, CValue: 0.3, PMI: 0.2, Pattern: 0.1}
}

// RecencyOptions controls the freshness boost applied after base scoring
type RecencyOptions struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	MaxAge    time.Duration `json:"max_age" yaml:"max_age"`       // Horizon beyond which the multiplier is 1
	PeakBoost float64       `json:"peak_boost" yaml:"peak_boost"` // Multiplier for brand-new content
}

// MiningOptions are the per-job knobs of the pipeline
type MiningOptions struct {
	MaxTerms           int            `json:"max_terms" yaml:"max_terms"`
	RequireDefinitions bool           `json:"require_definitions" yaml:"require_definitions"`
	EnableAIRefinement bool           `json:"enable_ai_refinement" yaml:"enable_ai_refinement"`
	StrictSafety       bool           `json:"strict_safety" yaml:"strict_safety"`
	MaxCandidates      int            `json:"max_candidates" yaml:"max_candidates"`
	MinFreq            int            `json:"min_freq" yaml:"min_freq"`
	MinNgram           int            `json:"min_ngram" yaml:"min_ngram"`
	MaxNgram           int            `json:"max_ngram" yaml:"max_ngram"`
	Weights            Weights        `json:"weights" yaml:"weights"`
	Recency            RecencyOptions `json:"recency" yaml:"recency"`
	MaxDefinitionWords int            `json:"max_definition_words" yaml:"max_definition_words"`
	MinConfidence      float64        `json:"min_confidence" yaml:"min_confidence"`
	ContextWindow      int            `json:"context_window" yaml:"context_window"`
}

// DefaultMiningOptions returns the documented defaults
func DefaultMiningOptions() MiningOptions {
	return MiningOptions{
		MaxTerms:      50,
		MaxCandidates: 200,
		MinFreq:       2,
		MinNgram:      1,
		MaxNgram:      5,
		Weights:       DefaultWeights(),
		Recency: RecencyOptions{
			MaxAge:    72 * time.Hour,
			PeakBoost: 2.0,
		},
		MaxDefinitionWords: 30,
		MinConfidence:      0.7,
		ContextWindow:      2,
	}
}

// Validate rejects options that cannot describe a job
func (o MiningOptions) Validate() error {
	switch {
	case o.MaxTerms < 0:
		return fmt.Errorf("%w: max_terms must not be negative (got %d)", ErrInvalidConfig, o.MaxTerms)
	case o.MaxCandidates < 0:
		return fmt.Errorf("%w: max_candidates must not be negative (got %d)", ErrInvalidConfig, o.MaxCandidates)
	case o.MinFreq < 0:
		return fmt.Errorf("%w: min_freq must not be negative (got %d)", ErrInvalidConfig, o.MinFreq)
	case o.MinNgram < 0 || o.MaxNgram < 0:
		return fmt.Errorf("%w: ngram bounds must not be negative", ErrInvalidConfig)
	case o.MinNgram > 0 && o.MaxNgram > 0 && o.MinNgram > o.MaxNgram:
		return fmt.Errorf("%w: min_ngram %d exceeds max_ngram %d", ErrInvalidConfig, o.MinNgram, o.MaxNgram)
	case o.MaxDefinitionWords < 0:
		return fmt.Errorf("%w: max_definition_words must not be negative (got %d)", ErrInvalidConfig, o.MaxDefinitionWords)
	case o.MinConfidence < 0 || o.MinConfidence > 1:
		return fmt.Errorf("%w: min_confidence must be within 0..1 (got %.2f)", ErrInvalidConfig, o.MinConfidence)
	case o.ContextWindow < 0:
		return fmt.Errorf("%w: context_window must not be negative (got %d)", ErrInvalidConfig, o.ContextWindow)
	case o.Weights.Freq < 0 || o.Weights.CValue < 0 || o.Weights.PMI < 0 || o.Weights.Pattern < 0:
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	case o.Recency.MaxAge < 0 || o.Recency.PeakBoost < 0:
		return fmt.Errorf("%w: recency settings must not be negative", ErrInvalidConfig)
	}
	return nil
}

// WithDefaults fills zero-valued limits with their defaults
func (o MiningOptions) WithDefaults() MiningOptions {
	d := DefaultMiningOptions()
	if o.MaxCandidates == 0 {
		o.MaxCandidates = d.MaxCandidates
	}
	if o.MinNgram == 0 {
		o.MinNgram = d.MinNgram
	}
	if o.MaxNgram == 0 {
		o.MaxNgram = d.MaxNgram
	}
	if o.Weights == (Weights{}) {
		o.Weights = d.Weights
	}
	if o.Recency.MaxAge == 0 {
		o.Recency.MaxAge = d.Recency.MaxAge
	}
	if o.Recency.PeakBoost == 0 {
		o.Recency.PeakBoost = d.Recency.PeakBoost
	}
	if o.MaxDefinitionWords == 0 {
		o.MaxDefinitionWords = d.MaxDefinitionWords
	}
	if o.ContextWindow == 0 {
		o.ContextWindow = d.ContextWindow
	}
	if o.MinConfidence == 0 {
		o.MinConfidence = d.MinConfidence
	}
	return o
}
