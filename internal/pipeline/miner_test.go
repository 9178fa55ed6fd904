package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/vocabmine/internal/llm"
	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/source"
)

const mlText = `Machine learning is a subset of artificial intelligence. Machine learning systems learn patterns from data.
Deep learning, a specialized subset of machine learning, uses neural networks with many layers.
Neural networks are loosely inspired by the brain.`

// stubFetcher serves canned documents by locator
type stubFetcher struct {
	docs map[string]model.Document
}

func (f *stubFetcher) Fetch(ctx context.Context, spec model.SourceSpec) model.Document {
	if doc, ok := f.docs[spec.Locator]; ok {
		return doc
	}
	return source.ErrorDocument(spec.Locator, errors.New("HTTP 404"))
}

func (f *stubFetcher) Detect(locator string) model.SourceType {
	return model.SourceHTML
}

// stubProvider answers every completion with the same text
type stubProvider struct {
	mu    sync.Mutex
	text  string
	calls int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return &llm.CompletionResponse{Text: p.text, Model: "stub"}, nil
}

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingSink struct {
	jobIDs []string
	err    error
}

func (s *recordingSink) SaveRun(ctx context.Context, jobID string, result *model.Result) error {
	s.jobIDs = append(s.jobIDs, jobID)
	return s.err
}

func defaultOptions() *model.MiningOptions {
	opts := model.DefaultMiningOptions()
	return &opts
}

func findTerm(result *model.Result, phrase string) *model.MinedTerm {
	for i := range result.Terms {
		if result.Terms[i].Phrase == phrase {
			return &result.Terms[i]
		}
	}
	return nil
}

func TestMine_InlineText(t *testing.T) {
	miner := New()

	result, err := miner.Mine(context.Background(), Input{SourceText: mlText})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}

	if result.JobID == "" {
		t.Error("Expected a job ID")
	}
	if result.State != model.StageDone {
		t.Errorf("Expected state done, got %s", result.State)
	}
	if result.Policy.Name != "local" {
		t.Errorf("Expected local policy for inline text, got %q", result.Policy.Name)
	}

	term := findTerm(result, "machine learning")
	if term == nil {
		t.Fatalf("Expected 'machine learning' among terms, got %d terms", len(result.Terms))
	}
	if term.Definition != "A subset of artificial intelligence." {
		t.Errorf("Expected copular definition, got %q", term.Definition)
	}
	if term.Example != "Machine learning systems learn patterns from data." {
		t.Errorf("Expected usage example, got %q", term.Example)
	}
	if term.SafetyStatus != model.SafetySafe {
		t.Errorf("Expected safe status, got %s", term.SafetyStatus)
	}

	for _, term := range result.Terms {
		if term.Score < 0 || term.Score > 1 {
			t.Errorf("Expected score within 0..1 for %q, got %f", term.Phrase, term.Score)
		}
		if term.Definition == "" {
			t.Errorf("Expected a definition for %q", term.Phrase)
		}
	}

	if result.Stats.Emitted != len(result.Terms) {
		t.Errorf("Expected emitted count %d, got %d", len(result.Terms), result.Stats.Emitted)
	}
	if result.Stats.Documents != 1 || result.Stats.FailedDocuments != 0 {
		t.Errorf("Expected 1 document and no failures, got %+v", result.Stats)
	}
}

func TestMine_StageSequence(t *testing.T) {
	result, err := New().Mine(context.Background(), Input{SourceText: mlText})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}

	want := []model.Stage{
		model.StageFetching, model.StageExtracting, model.StageRanking,
		model.StageFiltering, model.StageRefining, model.StageEmitting, model.StageDone,
	}
	if len(result.Stages) != len(want) {
		t.Fatalf("Expected %d stages, got %d: %+v", len(want), len(result.Stages), result.Stages)
	}
	for i, stage := range want {
		if result.Stages[i].Stage != stage {
			t.Errorf("Stage %d: expected %s, got %s", i, stage, result.Stages[i].Stage)
		}
	}
}

func TestMine_MaxTerms(t *testing.T) {
	opts := defaultOptions()
	opts.MaxTerms = 1

	result, err := New().Mine(context.Background(), Input{SourceText: mlText, Options: opts})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}

	if len(result.Terms) != 1 {
		t.Fatalf("Expected 1 term, got %d", len(result.Terms))
	}
	capped := 0
	for _, r := range result.Rejected {
		if r.Reason == model.RejectMaxTerms {
			capped++
		}
	}
	if capped == 0 {
		t.Error("Expected max_terms rejections")
	}
}

func TestMine_RequireDefinitions(t *testing.T) {
	opts := defaultOptions()
	opts.RequireDefinitions = true

	result, err := New().Mine(context.Background(), Input{SourceText: mlText, Options: opts})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}

	if findTerm(result, "machine learning") == nil {
		t.Error("Expected 'machine learning' to survive with its definition")
	}
	for _, term := range result.Terms {
		if term.Definition == "" || term.Example == "" {
			t.Errorf("Expected definition and example for %q, got %+v", term.Phrase, term)
		}
	}

	missing := 0
	for _, r := range result.Rejected {
		if r.Reason == model.RejectMissingDefinition || r.Reason == model.RejectMissingExample {
			missing++
		}
	}
	if missing == 0 {
		t.Error("Expected candidates without definitions to be rejected")
	}
	if result.Stats.DefinitionMissed != missing {
		t.Errorf("Expected definition_missed %d, got %d", missing, result.Stats.DefinitionMissed)
	}
}

func TestMine_StrictSafety(t *testing.T) {
	text := `Chemotherapy is a cancer treatment that uses powerful drugs. Chemotherapy often causes fatigue during treatment.`

	lenient, err := New().Mine(context.Background(), Input{SourceText: text})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	term := findTerm(lenient, "chemotherapy")
	if term == nil {
		t.Fatal("Expected 'chemotherapy' without strict safety")
	}
	if term.SafetyStatus != model.SafetySensitiveAllowed {
		t.Errorf("Expected sensitive-allowed, got %s", term.SafetyStatus)
	}

	opts := defaultOptions()
	opts.StrictSafety = true
	strict, err := New().Mine(context.Background(), Input{SourceText: text, Options: opts})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	if len(strict.Terms) != 0 {
		t.Errorf("Expected no terms in strict mode, got %d", len(strict.Terms))
	}
	if len(strict.Rejected) == 0 {
		t.Fatal("Expected rejections in strict mode")
	}
	for _, r := range strict.Rejected {
		if r.Reason != model.RejectSensitive {
			t.Errorf("Expected sensitive_strict for %q, got %s", r.Phrase, r.Reason)
		}
	}
	if strict.Stats.SafetyFiltered != len(strict.Rejected) {
		t.Errorf("Expected safety_filtered %d, got %d", len(strict.Rejected), strict.Stats.SafetyFiltered)
	}
}

func TestMine_BlockedContent(t *testing.T) {
	text := `Clickbait sites say click here to win prizes. Clickbait headlines say click here for more.`

	result, err := New().Mine(context.Background(), Input{SourceText: text})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}

	if findTerm(result, "clickbait") != nil {
		t.Error("Expected 'clickbait' to be blocked")
	}
	blocked := false
	for _, r := range result.Rejected {
		if r.Phrase == "clickbait" && r.Reason == model.RejectSafetyBlocked {
			blocked = true
			if !strings.Contains(r.Detail, "spam") {
				t.Errorf("Expected spam in detail, got %q", r.Detail)
			}
		}
	}
	if !blocked {
		t.Errorf("Expected safety_blocked rejection for clickbait, got %+v", result.Rejected)
	}
}

func TestMine_Licensing(t *testing.T) {
	t.Run("social sources are blocked", func(t *testing.T) {
		result, err := New().Mine(context.Background(), Input{
			SourceText: mlText,
			SourceURL:  "https://twitter.com/someone/status/1",
		})
		if err != nil {
			t.Fatalf("Mine failed: %v", err)
		}
		if len(result.Terms) != 0 {
			t.Errorf("Expected no terms from a social source, got %d", len(result.Terms))
		}
		if result.Stats.LicenseFiltered == 0 || result.Stats.LicenseFiltered != len(result.Rejected) {
			t.Errorf("Expected every rejection to be a license violation, got %+v", result.Stats)
		}
		if result.Policy.Name != "social" {
			t.Errorf("Expected social policy, got %q", result.Policy.Name)
		}
	})

	t.Run("news attribution", func(t *testing.T) {
		result, err := New().Mine(context.Background(), Input{
			SourceText: mlText,
			SourceURL:  "https://www.reuters.com/technology/ai-explained",
		})
		if err != nil {
			t.Fatalf("Mine failed: %v", err)
		}
		term := findTerm(result, "machine learning")
		if term == nil {
			t.Fatal("Expected 'machine learning' from a news source")
		}
		if term.Attribution != "Source: Reuters (reuters.com)" {
			t.Errorf("Expected Reuters attribution, got %q", term.Attribution)
		}
		if term.SourceURL != "https://www.reuters.com/technology/ai-explained" {
			t.Errorf("Expected source URL on term, got %q", term.SourceURL)
		}
		for _, term := range result.Terms {
			if len(term.Definition) > 200+len("...") {
				t.Errorf("Expected definition within the news excerpt limit, got %d chars", len(term.Definition))
			}
		}
	})
}

func TestMine_Refinement(t *testing.T) {
	provider := &stubProvider{text: `{"definition": "A branch of artificial intelligence where systems learn from data.", "confidence": 0.95}`}
	opts := defaultOptions()
	opts.EnableAIRefinement = true
	opts.MaxTerms = 3

	miner := New(
		WithProvider(provider),
		WithConcurrency(model.ConcurrencyConfig{FetchWorkers: 2, RefineConcurrency: 5}),
	)
	result, err := miner.Mine(context.Background(), Input{SourceText: mlText, Options: opts})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}

	if len(result.Terms) != 3 {
		t.Fatalf("Expected 3 terms, got %d", len(result.Terms))
	}
	if provider.Calls() != 3 {
		t.Errorf("Expected 3 completion calls, got %d", provider.Calls())
	}
	for _, term := range result.Terms {
		if term.Refinement == nil || !term.Refinement.WasRefined {
			t.Errorf("Expected %q to be refined, got %+v", term.Phrase, term.Refinement)
			continue
		}
		if term.Definition != "A branch of artificial intelligence where systems learn from data." {
			t.Errorf("Expected refined definition for %q, got %q", term.Phrase, term.Definition)
		}
	}
	if result.Stats.Refined != 3 {
		t.Errorf("Expected 3 refined, got %d", result.Stats.Refined)
	}
}

func TestMine_RefinementRespectsDerivativeRights(t *testing.T) {
	provider := &stubProvider{text: `{"definition": "Rewritten.", "confidence": 0.95}`}
	opts := defaultOptions()
	opts.EnableAIRefinement = true

	result, err := New(WithProvider(provider)).Mine(context.Background(), Input{
		SourceText: mlText,
		SourceURL:  "https://www.reuters.com/technology/ai-explained",
		Options:    opts,
	})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}

	if provider.Calls() != 0 {
		t.Errorf("Expected no completion calls for a no-derivative source, got %d", provider.Calls())
	}
	for _, term := range result.Terms {
		if term.Refinement != nil {
			t.Errorf("Expected %q to keep its original definition", term.Phrase)
		}
	}
}

func TestMine_RefinementGatedDraftKeepsOriginal(t *testing.T) {
	provider := &stubProvider{text: `{"definition": "Something unsupported.", "confidence": 0.3}`}
	opts := defaultOptions()
	opts.EnableAIRefinement = true
	opts.MaxTerms = 1

	result, err := New(WithProvider(provider)).Mine(context.Background(), Input{SourceText: mlText, Options: opts})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	if len(result.Terms) != 1 {
		t.Fatalf("Expected 1 term, got %d", len(result.Terms))
	}

	term := result.Terms[0]
	if term.Definition == "Something unsupported." {
		t.Error("Expected the low-confidence draft to be discarded")
	}
	if term.Refinement == nil || term.Refinement.WasRefined || len(term.Refinement.Warnings) == 0 {
		t.Errorf("Expected a gated refinement with a warning, got %+v", term.Refinement)
	}
	if result.Stats.RefineFallbacks != 1 {
		t.Errorf("Expected 1 refine fallback, got %d", result.Stats.RefineFallbacks)
	}
}

func TestMine_PartialOptionsKeepConfidenceGate(t *testing.T) {
	provider := &stubProvider{text: `{"definition": "A hallucinated definition.", "confidence": 0.05}`}
	opts := &model.MiningOptions{EnableAIRefinement: true, MinFreq: 2}

	result, err := New(WithProvider(provider)).Mine(context.Background(), Input{SourceText: mlText, Options: opts})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	if provider.Calls() == 0 {
		t.Fatal("Expected refinement to be attempted")
	}
	for _, term := range result.Terms {
		if term.Definition == "A hallucinated definition." {
			t.Errorf("Expected %q to keep its original definition", term.Phrase)
		}
		if term.Refinement != nil && term.Refinement.WasRefined {
			t.Errorf("Expected %q not refined below the default gate", term.Phrase)
		}
	}
}

func TestMineSources_PartialFailure(t *testing.T) {
	fetcher := &stubFetcher{docs: map[string]model.Document{
		"https://example.com/ml": source.NewTextDocument(model.SourceHTML, "https://example.com/ml", "ML", mlText),
	}}
	miner := New(WithFetcher(fetcher))

	result, err := miner.MineSources(context.Background(), []model.SourceSpec{
		{Locator: "https://example.com/ml"},
		{Locator: "https://example.com/missing"},
	}, nil)
	if err != nil {
		t.Fatalf("MineSources failed: %v", err)
	}

	if result.State != model.StagePartialFailure {
		t.Errorf("Expected partial_failure, got %s", result.State)
	}
	if result.Stats.Documents != 2 || result.Stats.FailedDocuments != 1 {
		t.Errorf("Expected 2 documents with 1 failure, got %+v", result.Stats)
	}
	if findTerm(result, "machine learning") == nil {
		t.Error("Expected terms from the healthy source")
	}

	fetching := result.Stages[0]
	if fetching.Stage != model.StageFetching || len(fetching.Notes) != 1 {
		t.Fatalf("Expected one note on the fetching stage, got %+v", fetching)
	}
	if !strings.Contains(fetching.Notes[0], "https://example.com/missing") {
		t.Errorf("Expected failed locator in note, got %q", fetching.Notes[0])
	}
	if got := result.Stages[len(result.Stages)-1].Stage; got != model.StagePartialFailure {
		t.Errorf("Expected terminal stage partial_failure, got %s", got)
	}
}

func TestMine_FetchesURL(t *testing.T) {
	fetcher := &stubFetcher{docs: map[string]model.Document{
		"https://example.com/ml": source.NewTextDocument(model.SourceHTML, "https://example.com/ml", "ML", mlText),
	}}

	result, err := New(WithFetcher(fetcher)).Mine(context.Background(), Input{SourceURL: "https://example.com/ml"})
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	term := findTerm(result, "machine learning")
	if term == nil {
		t.Fatal("Expected 'machine learning' from the fetched page")
	}
	if term.SourceURL != "https://example.com/ml" {
		t.Errorf("Expected term source URL, got %q", term.SourceURL)
	}
	if result.Policy.Name != "default" {
		t.Errorf("Expected default policy for an unknown domain, got %q", result.Policy.Name)
	}
}

func TestMine_FailedFetchIsNotAnError(t *testing.T) {
	result, err := New(WithFetcher(&stubFetcher{})).Mine(context.Background(), Input{SourceURL: "https://example.com/gone"})
	if err != nil {
		t.Fatalf("Expected a degraded result, got error %v", err)
	}
	if result.State != model.StagePartialFailure {
		t.Errorf("Expected partial_failure, got %s", result.State)
	}
	if len(result.Terms) != 0 {
		t.Errorf("Expected no terms, got %d", len(result.Terms))
	}
}

func TestMine_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		miner *Miner
		input Input
	}{
		{"no source", New(), Input{}},
		{"negative max terms", New(), Input{SourceText: mlText, Options: &model.MiningOptions{MaxTerms: -1}}},
		{"confidence out of range", New(), Input{SourceText: mlText, Options: &model.MiningOptions{MinConfidence: 1.5}}},
		{"url without fetcher", New(), Input{SourceURL: "https://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.miner.Mine(context.Background(), tt.input)
			if !errors.Is(err, model.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := New(WithFetcher(&stubFetcher{})).MineSources(context.Background(), nil, nil); !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for no sources, got %v", err)
	}
}

func TestMine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Mine(ctx, Input{SourceText: mlText})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestMine_Sink(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}

	result, err := New(WithSink(sink)).Mine(context.Background(), Input{SourceText: mlText})
	if err != nil {
		t.Fatalf("Expected sink errors to be logged, not returned: %v", err)
	}
	if len(sink.jobIDs) != 1 || sink.jobIDs[0] != result.JobID {
		t.Errorf("Expected run %s saved once, got %v", result.JobID, sink.jobIDs)
	}
}
