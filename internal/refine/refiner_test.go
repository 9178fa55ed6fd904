package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/vocabmine/internal/llm"
)

type stubProvider struct {
	mu       sync.Mutex
	text     string
	err      error
	prompts  []string
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.prompts = append(s.prompts, req.Prompt)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Text: s.text}, nil
}

const source = "Machine learning is a subset of artificial intelligence. It learns patterns from data."

func enabled(minConfidence float64) Options {
	return Options{Enabled: true, MaxDefinitionWords: 30, MinConfidence: minConfidence, ContextWindow: 2}
}

func TestRefineDefinition_Disabled(t *testing.T) {
	r := New(&stubProvider{text: `{"definition": "x", "confidence": 1}`}, Options{Enabled: false})

	result := r.RefineDefinition(context.Background(), "machine learning", "A subset of AI.", source)
	if result.WasRefined {
		t.Error("Expected WasRefined false when disabled")
	}
	if result.ConfidenceScore != 0.5 {
		t.Errorf("Expected confidence 0.5, got %.2f", result.ConfidenceScore)
	}
	if result.RefinedDefinition != "A subset of AI." {
		t.Errorf("Expected original definition, got %q", result.RefinedDefinition)
	}
	if result.Evidence.TargetPosition != 0 {
		t.Errorf("Expected evidence to be attached, got position %d", result.Evidence.TargetPosition)
	}
}

func TestRefineDefinition_NilProvider(t *testing.T) {
	r := New(nil, enabled(0.7))
	if r.Enabled() {
		t.Fatal("Expected refiner without provider to be disabled")
	}
	result := r.RefineDefinition(context.Background(), "machine learning", "A subset of AI.", source)
	if result.WasRefined || result.ConfidenceScore != 0.5 {
		t.Errorf("Expected pass-through result, got %+v", result)
	}
}

func TestRefineDefinition_Accepted(t *testing.T) {
	provider := &stubProvider{text: "```json\n{\"definition\": \"A branch of AI that learns patterns from data.\", \"confidence\": 0.92}\n```"}
	r := New(provider, enabled(0.7))

	result := r.RefineDefinition(context.Background(), "machine learning", "A subset of AI.", source)
	if !result.WasRefined {
		t.Fatalf("Expected refinement to be accepted, warnings: %v", result.Warnings)
	}
	if result.RefinedDefinition != "A branch of AI that learns patterns from data." {
		t.Errorf("Unexpected refined definition: %q", result.RefinedDefinition)
	}
	if result.OriginalDefinition != "A subset of AI." {
		t.Errorf("Expected original to be preserved, got %q", result.OriginalDefinition)
	}
	if result.ConfidenceScore != 0.92 {
		t.Errorf("Expected confidence 0.92, got %.2f", result.ConfidenceScore)
	}
	if result.WordCount != 9 {
		t.Errorf("Expected 9 words, got %d", result.WordCount)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}

	prompt := provider.prompts[0]
	if !strings.Contains(prompt, "Term: machine learning") || !strings.Contains(prompt, "It learns patterns from data.") {
		t.Errorf("Expected prompt to embed term and context, got:\n%s", prompt)
	}
}

func TestRefineDefinition_ConfidenceGate(t *testing.T) {
	provider := &stubProvider{text: `{"definition": "Something else entirely.", "confidence": 0.87}`}
	r := New(provider, enabled(0.9))

	result := r.RefineDefinition(context.Background(), "machine learning", "A subset of AI.", source)
	if result.WasRefined {
		t.Error("Expected WasRefined false below the confidence gate")
	}
	if result.RefinedDefinition != result.OriginalDefinition {
		t.Errorf("Expected refined == original, got %q vs %q", result.RefinedDefinition, result.OriginalDefinition)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "below minimum") {
		t.Errorf("Expected gate warning, got %v", result.Warnings)
	}
}

func TestRefineDefinition_DefaultConfidenceGate(t *testing.T) {
	provider := &stubProvider{text: `{"definition": "A hallucinated definition.", "confidence": 0.05}`}
	r := New(provider, Options{Enabled: true})

	result := r.RefineDefinition(context.Background(), "machine learning", "A subset of AI.", source)
	if result.WasRefined {
		t.Error("Expected the default gate to reject a 0.05 draft")
	}
	if result.RefinedDefinition != "A subset of AI." {
		t.Errorf("Expected original definition, got %q", result.RefinedDefinition)
	}
}

func TestRefineDefinition_WordLimit(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 45))
	provider := &stubProvider{text: fmt.Sprintf(`{"definition": %q, "confidence": 0.95}`, long)}

	for _, limit := range []int{1, 5, 30} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			opts := enabled(0.7)
			opts.MaxDefinitionWords = limit
			result := New(provider, opts).RefineDefinition(context.Background(), "machine learning", "A subset of AI.", source)

			if result.WordCount > limit {
				t.Errorf("Expected at most %d words, got %d", limit, result.WordCount)
			}
			if len(strings.Fields(result.RefinedDefinition)) != result.WordCount {
				t.Errorf("Expected WordCount to match text, got %d for %q", result.WordCount, result.RefinedDefinition)
			}
			if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "truncated from 45") {
				t.Errorf("Expected truncation warning, got %v", result.Warnings)
			}
		})
	}
}

func TestRefineDefinition_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		warning  string
	}{
		{"call error", &stubProvider{err: errors.New("connection refused")}, "connection refused"},
		{"not json", &stubProvider{text: "I think it means a kind of AI."}, "no JSON object"},
		{"missing confidence", &stubProvider{text: `{"definition": "x"}`}, "no confidence"},
		{"empty definition", &stubProvider{text: `{"definition": " ", "confidence": 0.9}`}, "no definition"},
		{"confidence out of range", &stubProvider{text: `{"definition": "x", "confidence": 1.4}`}, "outside 0..1"},
		{"uncited url", &stubProvider{text: `{"definition": "See https://evil.example/x for more.", "confidence": 0.9}`}, "not in the context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.provider, enabled(0.7)).RefineDefinition(context.Background(), "machine learning", "A subset of AI.", source)
			if result.WasRefined {
				t.Error("Expected WasRefined false on failure")
			}
			if result.ConfidenceScore != 0 {
				t.Errorf("Expected confidence 0 on failure, got %.2f", result.ConfidenceScore)
			}
			if result.RefinedDefinition != "A subset of AI." {
				t.Errorf("Expected original definition, got %q", result.RefinedDefinition)
			}
			if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], tt.warning) {
				t.Errorf("Expected warning containing %q, got %v", tt.warning, result.Warnings)
			}
		})
	}
}

func TestRefineDefinition_FallbackRespectsWordLimit(t *testing.T) {
	opts := enabled(0.7)
	opts.MaxDefinitionWords = 3
	original := "A subset of artificial intelligence."

	result := New(&stubProvider{err: errors.New("down")}, opts).RefineDefinition(context.Background(), "ml", original, source)
	if result.WordCount != 3 || result.RefinedDefinition != "A subset of" {
		t.Errorf("Expected original cut to 3 words, got %d %q", result.WordCount, result.RefinedDefinition)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("Expected truncation and failure warnings, got %v", result.Warnings)
	}
}

func TestRefineBatch(t *testing.T) {
	provider := &stubProvider{
		text:  `{"definition": "Refined.", "confidence": 0.9}`,
		delay: 5 * time.Millisecond,
	}
	var sleeps atomic.Int32
	opts := enabled(0.7)
	opts.Concurrency = 2
	opts.BatchDelay = time.Second

	r := New(provider, opts, WithSleep(func(ctx context.Context, d time.Duration) error {
		sleeps.Add(1)
		if d != time.Second {
			t.Errorf("Expected batch delay 1s, got %v", d)
		}
		return nil
	}))

	reqs := make([]Request, 5)
	for i := range reqs {
		reqs[i] = Request{Term: fmt.Sprintf("term%d", i), Definition: "Original.", SourceText: source}
	}

	results := r.RefineBatch(context.Background(), reqs)
	if len(results) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(results))
	}
	for i, result := range results {
		if !result.WasRefined || result.RefinedDefinition != "Refined." {
			t.Errorf("Expected result %d to be refined, got %+v", i, result)
		}
	}
	if got := sleeps.Load(); got != 2 {
		t.Errorf("Expected 2 inter-batch pauses for 3 batches, got %d", got)
	}
	if peak := provider.peak.Load(); peak > 2 {
		t.Errorf("Expected at most 2 concurrent calls, got %d", peak)
	}
}

func TestRefineBatch_Cancelled(t *testing.T) {
	provider := &stubProvider{text: `{"definition": "Refined.", "confidence": 0.9}`}
	opts := enabled(0.7)
	opts.Concurrency = 1
	opts.BatchDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	r := New(provider, opts, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	reqs := []Request{
		{Term: "a", Definition: "First.", SourceText: source},
		{Term: "b", Definition: "Second.", SourceText: source},
		{Term: "c", Definition: "Third.", SourceText: source},
	}
	results := r.RefineBatch(ctx, reqs)

	if !results[0].WasRefined {
		t.Error("Expected first batch to complete")
	}
	for _, result := range results[1:] {
		if result.WasRefined {
			t.Error("Expected skipped requests to keep originals")
		}
		if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "skipped") {
			t.Errorf("Expected skip warning, got %v", result.Warnings)
		}
	}
	if results[2].RefinedDefinition != "Third." {
		t.Errorf("Expected original definition, got %q", results[2].RefinedDefinition)
	}
}

func TestParseDraft(t *testing.T) {
	draft, err := ParseDraft(`Here you go: {"definition": "A  model\nof data.", "confidence": 0.8} thanks`)
	if err != nil {
		t.Fatalf("ParseDraft failed: %v", err)
	}
	if draft.Definition != "A model of data." {
		t.Errorf("Expected whitespace collapsed, got %q", draft.Definition)
	}
	if draft.Confidence != 0.8 {
		t.Errorf("Expected 0.8, got %.2f", draft.Confidence)
	}
}

func TestLimitWords(t *testing.T) {
	text, count, truncated := LimitWords("one two three four", 2)
	if text != "one two" || count != 2 || !truncated {
		t.Errorf("Expected (one two, 2, true), got (%s, %d, %v)", text, count, truncated)
	}
	text, count, truncated = LimitWords("one two", 5)
	if text != "one two" || count != 2 || truncated {
		t.Errorf("Expected (one two, 2, false), got (%s, %d, %v)", text, count, truncated)
	}
}
