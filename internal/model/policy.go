package model

// SourcePolicy governs how content from one source domain may be reused
type SourcePolicy struct {
	Name            string   `json:"name" yaml:"name"`
	AllowExamples   bool     `json:"allow_examples" yaml:"allow_examples"`
	MaxExcerptChars int      `json:"max_excerpt_chars" yaml:"max_excerpt_chars"`
	Attribution     string   `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	AllowDerivative bool     `json:"allow_derivative" yaml:"allow_derivative"`
	Restrictions    []string `json:"restrictions,omitempty" yaml:"restrictions,omitempty"`
	Blocked         bool     `json:"blocked,omitempty" yaml:"blocked,omitempty"` // Source may not be used at all
}

// SafetyStatus is the emitted safety classification of a term
type SafetyStatus string

const (
	SafetySafe             SafetyStatus = "safe"
	SafetySensitiveAllowed SafetyStatus = "sensitive-allowed"
	SafetyBlocked          SafetyStatus = "blocked"
)
