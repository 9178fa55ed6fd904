package model

import "time"

// MinedTerm is the final emitted unit of a mining job.
// JSON names follow the downstream delivery wire shape.
type MinedTerm struct {
	Phrase       string            `json:"phrase"`
	Definition   string            `json:"definition"`
	Example      string            `json:"example,omitempty"`
	Score        float64           `json:"score"` // 0..1
	SafetyStatus SafetyStatus      `json:"safetyStatus"`
	Attribution  string            `json:"attribution,omitempty"`
	SourceURL    string            `json:"sourceUrl,omitempty"`
	Refinement   *RefinementResult `json:"refinement,omitempty"`
}

// RejectReason classifies why a candidate was not emitted
type RejectReason string

const (
	RejectSafetyBlocked     RejectReason = "safety_blocked"
	RejectSensitive         RejectReason = "sensitive_strict"
	RejectLicenseViolation  RejectReason = "license_violation"
	RejectMissingDefinition RejectReason = "missing_definition"
	RejectMissingExample    RejectReason = "missing_example"
	RejectMaxTerms          RejectReason = "max_terms"
)

// Rejection records a dropped candidate
type Rejection struct {
	Phrase string       `json:"phrase"`
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

// Stage is a mining job state
type Stage string

const (
	StageFetching       Stage = "fetching"
	StageExtracting     Stage = "extracting"
	StageRanking        Stage = "ranking"
	StageFiltering      Stage = "filtering"
	StageRefining       Stage = "refining"
	StageEmitting       Stage = "emitting"
	StageDone           Stage = "done"
	StagePartialFailure Stage = "partial_failure"
)

// StageRecord notes a stage transition and any degradation observed in it
type StageRecord struct {
	Stage    Stage         `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
	Notes    []string      `json:"notes,omitempty"`
}

// Stats exposes counts of filtered and rejected items
type Stats struct {
	Documents        int `json:"documents"`
	FailedDocuments  int `json:"failed_documents"`
	Sentences        int `json:"sentences"`
	Candidates       int `json:"candidates"`
	Ranked           int `json:"ranked"`
	SafetyFiltered   int `json:"safety_filtered"`
	LicenseFiltered  int `json:"license_filtered"`
	DefinitionMissed int `json:"definition_missed"`
	Refined          int `json:"refined"`
	RefineFallbacks  int `json:"refine_fallbacks"`
	Emitted          int `json:"emitted"`
}

// Result is the output of one mining job
type Result struct {
	JobID    string        `json:"job_id"`
	Terms    []MinedTerm   `json:"terms"`
	Rejected []Rejection   `json:"rejected"`
	Stats    Stats         `json:"stats"`
	Policy   SourcePolicy  `json:"policy"`
	State    Stage         `json:"state"`
	Stages   []StageRecord `json:"stages"`
	Started  time.Time     `json:"started_at"`
	Finished time.Time     `json:"finished_at"`
}
