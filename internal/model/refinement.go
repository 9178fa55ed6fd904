package model

// ContextEvidence is the sentence window around a term's first occurrence
type ContextEvidence struct {
	TargetSentence   string   `json:"target_sentence"`
	ContextSentences []string `json:"context_sentences"`
	FullContext      string   `json:"full_context"`
	TargetPosition   int      `json:"target_position"` // Index of the target sentence; -1 when the term was not found
}

// RefinementResult records the outcome of one definition refinement
type RefinementResult struct {
	RefinedDefinition  string          `json:"refined_definition"`
	OriginalDefinition string          `json:"original_definition"`
	ConfidenceScore    float64         `json:"confidence_score"`
	Evidence           ContextEvidence `json:"evidence"`
	WasRefined         bool            `json:"was_refined"`
	WordCount          int             `json:"word_count"`
	Warnings           []string        `json:"warnings,omitempty"`
}
