package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/vocabmine/internal/model"
)

func sampleResult() *model.Result {
	return &model.Result{
		JobID: "job-1",
		Terms: []model.MinedTerm{
			{
				Phrase:       "machine learning",
				Definition:   "A subset of artificial intelligence.",
				Example:      "Machine learning systems learn patterns from data.",
				Score:        0.82,
				SafetyStatus: model.SafetySafe,
				Attribution:  "Source: Wikipedia (en.wikipedia.org)",
				SourceURL:    "https://en.wikipedia.org/wiki/Machine_learning",
			},
		},
		Rejected: []model.Rejection{
			{Phrase: "click here", Reason: model.RejectSafetyBlocked, Detail: "spam"},
		},
		Stats: model.Stats{Documents: 1, Candidates: 12, Ranked: 5, SafetyFiltered: 1, Emitted: 1},
		Policy: model.SourcePolicy{
			Name:            "wikipedia",
			AllowExamples:   true,
			MaxExcerptChars: 500,
			AllowDerivative: true,
		},
		State: model.StageDone,
		Stages: []model.StageRecord{
			{Stage: model.StageFetching, Notes: []string{"fetch https://example.com/x: HTTP 404"}},
			{Stage: model.StageDone},
		},
		Started: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderer_Markdown(t *testing.T) {
	md := NewRenderer(true).Markdown(sampleResult())

	for _, want := range []string{
		"# Mined Vocabulary",
		"### 1. machine learning",
		"A subset of artificial intelligence.",
		"> Machine learning systems learn patterns from data.",
		"_Source: Wikipedia (en.wikipedia.org)_",
		"| click here | safety_blocked | spam |",
		"wikipedia, excerpts up to 500 chars, derivative use allowed",
		"- fetching: fetch https://example.com/x: HTTP 404",
		"Generated by vocabmine",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q\n%s", want, md)
		}
	}

	if strings.Contains(NewRenderer(false).Markdown(sampleResult()), "Generated by vocabmine") {
		t.Error("Expected no footer when disabled")
	}
}

func TestRenderer_MarkdownEmpty(t *testing.T) {
	md := NewRenderer(false).Markdown(&model.Result{State: model.StagePartialFailure})
	if !strings.Contains(md, "_No terms emitted._") {
		t.Errorf("Expected empty-terms marker, got:\n%s", md)
	}
	if strings.Contains(md, "## Rejected") {
		t.Error("Expected no rejected section without rejections")
	}
}

func TestRenderer_RenderJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.json")
	if err := NewRenderer(false).RenderJSON(sampleResult(), path); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Expected valid JSON: %v", err)
	}
	if decoded.JobID != "job-1" || len(decoded.Terms) != 1 {
		t.Errorf("Expected job-1 with 1 term, got %s with %d", decoded.JobID, len(decoded.Terms))
	}
	if !bytes.Contains(data, []byte(`"safetyStatus": "safe"`)) {
		t.Errorf("Expected camelCase term fields, got:\n%s", data)
	}
}

func TestRenderer_Summary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(false).RenderSummary(&buf, sampleResult())

	want := "done: 1 terms from 1 documents (1 rejected: 1 safety, 0 license, 0 definition)\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}
