package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/vocabmine/internal/llm"
	"github.com/ppiankov/vocabmine/internal/metrics"
	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/worker"
)

// passthroughConfidence is reported when refinement is disabled
const passthroughConfidence = 0.5

const systemPrompt = `You refine vocabulary definitions for learners.
You MUST ground the definition only in the context provided. Do not add facts, names, dates or URLs that the context does not contain.
Respond with a single JSON object: {"definition": string, "confidence": number between 0 and 1}.
Confidence reflects how well the context supports the definition.`

// Options configure refinement
type Options struct {
	Enabled            bool
	MaxDefinitionWords int
	MinConfidence      float64
	ContextWindow      int
	Concurrency        int           // Refinements in flight per batch
	BatchDelay         time.Duration // Pause between batches
	Model              string
	MaxTokens          int
}

// OptionsFrom derives refinement options from mining options and config
func OptionsFrom(opts model.MiningOptions, concurrency model.ConcurrencyConfig) Options {
	return Options{
		Enabled:            opts.EnableAIRefinement,
		MaxDefinitionWords: opts.MaxDefinitionWords,
		MinConfidence:      opts.MinConfidence,
		ContextWindow:      opts.ContextWindow,
		Concurrency:        concurrency.RefineConcurrency,
		BatchDelay:         concurrency.RefineBatchDelay,
	}
}

// Request is one term to refine
type Request struct {
	Term       string
	Definition string
	SourceText string
}

// Refiner rewrites definitions through a completion provider, keeping the
// original whenever the draft cannot be trusted
type Refiner struct {
	provider llm.Provider
	opts     Options
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	sleep    func(context.Context, time.Duration) error
}

// Option customizes a Refiner
type Option func(*Refiner)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Refiner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Refiner) { r.metrics = m }
}

// WithSleep replaces the inter-batch pause (tests)
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Refiner) { r.sleep = sleep }
}

// New creates a refiner. A nil provider behaves as disabled.
func New(provider llm.Provider, opts Options, options ...Option) *Refiner {
	d := model.DefaultMiningOptions()
	if opts.MaxDefinitionWords <= 0 {
		opts.MaxDefinitionWords = d.MaxDefinitionWords
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = d.ContextWindow
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = d.MinConfidence
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}

	r := &Refiner{
		provider: provider,
		opts:     opts,
		logger:   zerolog.Nop(),
		sleep:    worker.Sleep,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Enabled reports whether drafts will be requested
func (r *Refiner) Enabled() bool {
	return r.opts.Enabled && r.provider != nil
}

// RefineDefinition returns the refined definition for term, or the original
// with warnings when refinement is disabled, fails or is not confident enough.
// The returned WordCount never exceeds MaxDefinitionWords.
func (r *Refiner) RefineDefinition(ctx context.Context, term, definition, sourceText string) model.RefinementResult {
	evidence := ExtractContextEvidence(sourceText, term, r.opts.ContextWindow)

	if !r.Enabled() {
		r.metrics.ObserveRefinement("passthrough")
		return r.keepOriginal(definition, evidence, passthroughConfidence)
	}

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		System:    systemPrompt,
		Prompt:    BuildPrompt(term, definition, evidence, r.opts.MaxDefinitionWords),
		Model:     r.opts.Model,
		MaxTokens: r.opts.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		return r.fallback(term, definition, evidence, fmt.Sprintf("refinement failed: %v", err))
	}

	draft, err := ParseDraft(resp.Text)
	if err != nil {
		return r.fallback(term, definition, evidence, fmt.Sprintf("refinement failed: %v", err))
	}

	if leaked := citedOutside(draft.Definition, evidence.FullContext); leaked != "" {
		return r.fallback(term, definition, evidence, fmt.Sprintf("refinement rejected: draft cites %s which is not in the context", leaked))
	}

	if draft.Confidence < r.opts.MinConfidence {
		r.metrics.ObserveRefinement("gated")
		result := r.keepOriginal(definition, evidence, draft.Confidence)
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"confidence %.2f below minimum %.2f; kept original definition", draft.Confidence, r.opts.MinConfidence))
		return result
	}

	refined, count, truncated := LimitWords(draft.Definition, r.opts.MaxDefinitionWords)
	result := model.RefinementResult{
		RefinedDefinition:  refined,
		OriginalDefinition: definition,
		ConfidenceScore:    draft.Confidence,
		Evidence:           evidence,
		WasRefined:         true,
		WordCount:          count,
	}
	if truncated {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"definition truncated from %d to %d words", countWords(draft.Definition), count))
	}
	r.metrics.ObserveRefinement("refined")
	return result
}

// RefineBatch refines requests in batches of Concurrency with BatchDelay
// between batches. Results are positional. Requests not started before ctx
// is cancelled keep their original definitions.
func (r *Refiner) RefineBatch(ctx context.Context, reqs []Request) []model.RefinementResult {
	results := make([]model.RefinementResult, len(reqs))
	size := r.opts.Concurrency

	for start := 0; start < len(reqs); start += size {
		if start > 0 && r.Enabled() && r.opts.BatchDelay > 0 {
			if err := r.sleep(ctx, r.opts.BatchDelay); err != nil {
				r.skipRemaining(reqs, results, start, err)
				return results
			}
		}
		if err := ctx.Err(); err != nil {
			r.skipRemaining(reqs, results, start, err)
			return results
		}

		end := min(start+size, len(reqs))
		var g errgroup.Group
		g.SetLimit(size)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				req := reqs[i]
				results[i] = r.RefineDefinition(ctx, req.Term, req.Definition, req.SourceText)
				return nil
			})
		}
		_ = g.Wait()

		r.logger.Debug().
			Int("batch_start", start).
			Int("batch_size", end-start).
			Msg("refinement batch complete")
	}
	return results
}

func (r *Refiner) skipRemaining(reqs []Request, results []model.RefinementResult, from int, cause error) {
	r.logger.Warn().Err(cause).Int("skipped", len(reqs)-from).Msg("refinement cancelled")
	for i := from; i < len(reqs); i++ {
		evidence := ExtractContextEvidence(reqs[i].SourceText, reqs[i].Term, r.opts.ContextWindow)
		results[i] = r.keepOriginal(reqs[i].Definition, evidence, 0)
		results[i].Warnings = append(results[i].Warnings, fmt.Sprintf("refinement skipped: %v", cause))
	}
}

func (r *Refiner) fallback(term, definition string, evidence model.ContextEvidence, warning string) model.RefinementResult {
	r.logger.Warn().Str("term", term).Msg(warning)
	r.metrics.ObserveRefinement("fallback")
	result := r.keepOriginal(definition, evidence, 0)
	result.Warnings = append(result.Warnings, warning)
	return result
}

// keepOriginal returns the original definition, cut to the word limit
func (r *Refiner) keepOriginal(definition string, evidence model.ContextEvidence, confidence float64) model.RefinementResult {
	text, count, truncated := LimitWords(definition, r.opts.MaxDefinitionWords)
	result := model.RefinementResult{
		RefinedDefinition:  text,
		OriginalDefinition: definition,
		ConfidenceScore:    confidence,
		Evidence:           evidence,
		WordCount:          count,
	}
	if truncated {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"original definition truncated from %d to %d words", countWords(definition), count))
	}
	return result
}

// BuildPrompt embeds the term, the original definition and the context
// evidence in the user prompt
func BuildPrompt(term, definition string, evidence model.ContextEvidence, maxWords int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Term: %s\n", term)
	if definition != "" {
		fmt.Fprintf(&b, "Original definition: %s\n", definition)
	} else {
		b.WriteString("Original definition: (none)\n")
	}
	if evidence.TargetSentence != "" {
		fmt.Fprintf(&b, "Sentence mentioning the term: %s\n", evidence.TargetSentence)
	}
	b.WriteString("\nContext:\n")
	if evidence.FullContext == "" {
		b.WriteString("(no context available)\n")
	} else {
		b.WriteString(evidence.FullContext)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nWrite a clear definition of at most %d words supported by the context.", maxWords)
	return b.String()
}

// Draft is the structured completion the refiner requires
type Draft struct {
	Definition string
	Confidence float64
}

type rawDraft struct {
	Definition *string  `json:"definition"`
	Confidence *float64 `json:"confidence"`
}

// ParseDraft decodes the first JSON object in text. Both fields are
// required and confidence must lie within 0..1.
func ParseDraft(text string) (Draft, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Draft{}, fmt.Errorf("no JSON object in response")
	}

	var raw rawDraft
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Draft{}, fmt.Errorf("decode response: %w", err)
	}
	if raw.Definition == nil || strings.TrimSpace(*raw.Definition) == "" {
		return Draft{}, fmt.Errorf("response has no definition")
	}
	if raw.Confidence == nil {
		return Draft{}, fmt.Errorf("response has no confidence")
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return Draft{}, fmt.Errorf("confidence %.2f outside 0..1", *raw.Confidence)
	}

	return Draft{
		Definition: strings.Join(strings.Fields(*raw.Definition), " "),
		Confidence: *raw.Confidence,
	}, nil
}

// LimitWords cuts text to at most maxWords whitespace-separated words
func LimitWords(text string, maxWords int) (limited string, count int, truncated bool) {
	words := strings.Fields(text)
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
		truncated = true
	}
	return strings.Join(words, " "), len(words), truncated
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

var urlPattern = regexp.MustCompile(`https?://[^\s)"']+`)

// citedOutside returns the first URL in draft that the context does not contain
func citedOutside(draft, evidence string) string {
	for _, u := range urlPattern.FindAllString(draft, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !strings.Contains(evidence, u) {
			return u
		}
	}
	return ""
}
