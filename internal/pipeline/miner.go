package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/vocabmine/internal/extract"
	"github.com/ppiankov/vocabmine/internal/llm"
	"github.com/ppiankov/vocabmine/internal/metrics"
	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/refine"
	"github.com/ppiankov/vocabmine/internal/score"
	"github.com/ppiankov/vocabmine/internal/source"
	"github.com/ppiankov/vocabmine/internal/validate"
	"github.com/ppiankov/vocabmine/internal/worker"
)

// Fetcher turns source specs into documents. *source.Router satisfies it.
type Fetcher interface {
	worker.Fetcher
	Detect(locator string) model.SourceType
}

// Sink persists finished runs
type Sink interface {
	SaveRun(ctx context.Context, jobID string, result *model.Result) error
}

// Input is one mining job over a single source. SourceText, when set, is
// mined directly and SourceURL only drives licensing and attribution.
// Otherwise SourceURL is fetched through its adapter.
type Input struct {
	SourceText  string
	SourceURL   string
	SourceType  model.SourceType
	Title       string
	PublishedAt *time.Time
	Options     *model.MiningOptions // nil uses the miner defaults
}

// Miner orchestrates ingest, extraction, ranking, filtering, refinement
// and emission for mining jobs
type Miner struct {
	fetcher     Fetcher
	provider    llm.Provider
	llmModel    string
	llmTokens   int
	policies    *validate.PolicyTable
	defaults    model.MiningOptions
	concurrency model.ConcurrencyConfig
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	sink        Sink
	now         func() time.Time

	mu        sync.Mutex
	scheduler *Scheduler
}

// Option customizes a Miner
type Option func(*Miner)

func WithFetcher(f Fetcher) Option {
	return func(m *Miner) { m.fetcher = f }
}

// WithProvider sets the completion provider used for refinement
func WithProvider(p llm.Provider) Option {
	return func(m *Miner) { m.provider = p }
}

// WithModel overrides the provider's model and token budget for refinement
func WithModel(name string, maxTokens int) Option {
	return func(m *Miner) {
		m.llmModel = name
		m.llmTokens = maxTokens
	}
}

func WithPolicies(p *validate.PolicyTable) Option {
	return func(m *Miner) { m.policies = p }
}

// WithDefaults sets the options used by jobs that carry none
func WithDefaults(opts model.MiningOptions) Option {
	return func(m *Miner) { m.defaults = opts }
}

func WithConcurrency(c model.ConcurrencyConfig) Option {
	return func(m *Miner) { m.concurrency = c }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Miner) { m.logger = logger }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Miner) { m.metrics = mt }
}

func WithSink(s Sink) Option {
	return func(m *Miner) { m.sink = s }
}

func WithClock(now func() time.Time) Option {
	return func(m *Miner) { m.now = now }
}

// New creates a miner. Without a fetcher only inline text can be mined.
func New(options ...Option) *Miner {
	m := &Miner{
		policies:    validate.NewPolicyTable(nil),
		defaults:    model.DefaultMiningOptions(),
		concurrency: model.DefaultConfig().Concurrency,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// NewMinerFromConfig wires the default adapters, completion provider and
// licensing table from the application configuration
func NewMinerFromConfig(cfg *model.Config, logger zerolog.Logger, options ...Option) (*Miner, error) {
	provider, err := llm.NewProvider(llm.WithEnvKeys(llm.ConfigFromModel(cfg.LLM, cfg.HTTP)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}

	fetcher, _ := source.NewFetcherFromConfig(cfg, logger)
	base := []Option{
		WithFetcher(source.NewDefaultRouter(cfg, fetcher)),
		WithModel(cfg.LLM.Model, cfg.LLM.MaxTokens),
		WithPolicies(validate.NewPolicyTable(cfg.Licensing.DomainPolicies)),
		WithDefaults(cfg.Mining),
		WithConcurrency(cfg.Concurrency),
		WithLogger(logger),
	}
	if provider != nil {
		base = append(base, WithProvider(provider))
	}
	return New(append(base, options...)...), nil
}

// Mine runs one job over a single source. Only invalid options, missing
// input or cancellation produce an error; content failures degrade the
// result instead.
func (m *Miner) Mine(ctx context.Context, in Input) (*model.Result, error) {
	opts, err := m.options(in.Options)
	if err != nil {
		return nil, err
	}
	inline := strings.TrimSpace(in.SourceText) != ""
	if !inline && in.SourceURL == "" {
		return nil, fmt.Errorf("%w: source text or source url is required", model.ErrInvalidConfig)
	}
	if !inline && m.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured for %s", model.ErrInvalidConfig, in.SourceURL)
	}

	j := newJob(m.logger, m.metrics, m.now)
	j.enter(model.StageFetching)

	var doc model.Document
	if inline {
		doc = source.NewTextDocument(in.SourceType, in.SourceURL, in.Title, in.SourceText)
	} else {
		doc = m.fetch(ctx, m.resolve(model.SourceSpec{Locator: in.SourceURL, Type: in.SourceType}))
	}
	if doc.PublishedAt == nil && !doc.Failed() {
		doc.PublishedAt = in.PublishedAt
	}

	return m.run(ctx, j, []model.Document{doc}, opts)
}

// MineSources fetches every source through the bounded worker pool and
// mines them as one corpus. Failed sources make the job a partial failure.
func (m *Miner) MineSources(ctx context.Context, specs []model.SourceSpec, options *model.MiningOptions) (*model.Result, error) {
	opts, err := m.options(options)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: at least one source is required", model.ErrInvalidConfig)
	}
	if m.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", model.ErrInvalidConfig)
	}

	j := newJob(m.logger, m.metrics, m.now)
	j.enter(model.StageFetching)

	resolved := make([]model.SourceSpec, len(specs))
	for i, spec := range specs {
		resolved[i] = m.resolve(spec)
	}

	// Per-host pacing happens inside the HTTP fetcher.
	batch := worker.NewBatchFetcher(fetchFunc(m.fetch), nil, m.concurrency.FetchWorkers)
	results := batch.FetchAll(ctx, resolved)

	docs := make([]model.Document, 0, len(results))
	for _, r := range results {
		if r.Skipped {
			j.result.Stats.Documents++
			j.result.Stats.FailedDocuments++
			j.fail("skipped %s: job cancelled", r.Spec.Locator)
			continue
		}
		docs = append(docs, r.Document)
	}

	return m.run(ctx, j, docs, opts)
}

// Scheduler returns the miner's watch scheduler, creating it on first use
func (m *Miner) Scheduler() *Scheduler {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler == nil {
		m.scheduler = NewScheduler(m.mineWatch, m.logger)
	}
	return m.scheduler
}

// Watch registers a watch on the miner's scheduler. Untyped sources are
// detected first so local files get change notifications.
func (m *Miner) Watch(w Watch) (string, error) {
	w.Spec = m.resolve(w.Spec)
	return m.Scheduler().Add(w)
}

// Close stops every watch and waits for running jobs to return
func (m *Miner) Close() {
	m.mu.Lock()
	s := m.scheduler
	m.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

func (m *Miner) mineWatch(ctx context.Context, w Watch) (*model.Result, error) {
	return m.MineSources(ctx, []model.SourceSpec{w.Spec}, w.Options)
}

func (m *Miner) options(opts *model.MiningOptions) (model.MiningOptions, error) {
	o := m.defaults
	if opts != nil {
		o = *opts
	}
	if err := o.Validate(); err != nil {
		return model.MiningOptions{}, err
	}
	return o.WithDefaults(), nil
}

func (m *Miner) resolve(spec model.SourceSpec) model.SourceSpec {
	if spec.Type == "" && m.fetcher != nil {
		spec.Type = m.fetcher.Detect(spec.Locator)
	}
	return spec
}

func (m *Miner) fetch(ctx context.Context, spec model.SourceSpec) model.Document {
	doc := m.fetcher.Fetch(ctx, spec)
	outcome := "ok"
	if doc.Failed() {
		outcome = "error"
	}
	m.metrics.ObserveFetch(string(spec.Type), outcome)
	return doc
}

type fetchFunc func(ctx context.Context, spec model.SourceSpec) model.Document

func (f fetchFunc) Fetch(ctx context.Context, spec model.SourceSpec) model.Document {
	return f(ctx, spec)
}

// pendingTerm is a candidate that passed filtering and awaits refinement
type pendingTerm struct {
	term   model.MinedTerm
	doc    *model.Document
	policy model.SourcePolicy
}

func (m *Miner) run(ctx context.Context, j *job, docs []model.Document, opts model.MiningOptions) (*model.Result, error) {
	live := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		j.result.Stats.Documents++
		if d.Failed() {
			j.result.Stats.FailedDocuments++
			j.fail("fetch %s: %s", d.URL, d.FetchError)
			continue
		}
		live = append(live, d)
	}

	primary := freshest(live)
	if primary != nil {
		j.result.Policy = m.policies.Resolve(primary.URL)
	} else if len(docs) > 0 {
		j.result.Policy = m.policies.Resolve(docs[0].URL)
	}

	if err := ctx.Err(); err != nil {
		j.finish()
		return nil, fmt.Errorf("mining cancelled: %w", err)
	}

	// 1. Extract
	j.enter(model.StageExtracting)
	texts := make([]string, len(live))
	for i := range live {
		texts[i] = live[i].Text
	}
	corpus := extract.NewExtractor(opts.MinNgram, opts.MaxNgram).ExtractDocuments(texts...)
	j.result.Stats.Sentences = len(corpus.Sentences)
	j.result.Stats.Candidates = len(corpus.Candidates)
	j.logger.Debug().
		Int("documents", len(live)).
		Int("sentences", len(corpus.Sentences)).
		Int("candidates", len(corpus.Candidates)).
		Msg("extraction complete")

	// 2. Rank
	j.enter(model.StageRanking)
	ranked := score.NewRanker(opts).WithClock(m.now).Rank(corpus, primary)
	j.result.Stats.Ranked = len(ranked)

	// 3. Filter
	j.enter(model.StageFiltering)
	pending := m.filter(j, corpus, live, ranked, opts)

	// 4. Refine
	j.enter(model.StageRefining)
	m.refine(ctx, j, pending, opts)

	// 5. Emit
	j.enter(model.StageEmitting)
	for _, p := range pending {
		j.result.Terms = append(j.result.Terms, p.term)
	}
	result := j.finish()

	if m.sink != nil {
		if err := m.sink.SaveRun(ctx, result.JobID, result); err != nil {
			j.logger.Warn().Err(err).Msg("failed to save run")
		}
	}
	return result, nil
}

// filter applies licensing, definition, safety and cap rules to ranked
// candidates in rank order
func (m *Miner) filter(j *job, corpus *extract.Corpus, docs []model.Document, ranked []*model.Candidate, opts model.MiningOptions) []*pendingTerm {
	pending := make([]*pendingTerm, 0, len(ranked))

	for _, c := range ranked {
		doc := &docs[corpus.DocumentOf(c.Positions[0].Sentence)]
		policy := m.policies.Resolve(doc.URL)
		if policy.Blocked {
			j.reject(c.Phrase, model.RejectLicenseViolation, fmt.Sprintf("%s policy blocks reuse of %s", policy.Name, validate.Domain(doc.URL)))
			continue
		}

		definition, definitionSentence := findDefinition(c.Phrase, c.OccurrenceContexts)
		if definition == "" {
			if opts.RequireDefinitions {
				j.reject(c.Phrase, model.RejectMissingDefinition, "no defining sentence found")
				continue
			}
			definitionSentence = c.OccurrenceContexts[0]
			definition = normalizeDefinition(definitionSentence)
		}
		example := pickExample(c.OccurrenceContexts, definitionSentence)
		if example == "" && opts.RequireDefinitions {
			j.reject(c.Phrase, model.RejectMissingExample, "no usage sentence besides the definition")
			continue
		}

		safety := validate.Classify(strings.Join([]string{c.Phrase, definition, example}, "\n"), opts.StrictSafety)
		if safety.IsBlocked {
			j.reject(c.Phrase, model.RejectSafetyBlocked, strings.Join(safety.BlockedReasons, ", "))
			continue
		}
		if !safety.IsSafe {
			j.reject(c.Phrase, model.RejectSensitive, strings.Join(safety.SensitiveReasons, ", "))
			continue
		}

		constrained := validate.ApplyLicenseConstraints(validate.CleanText(definition), policy)
		if constrained == "" {
			j.reject(c.Phrase, model.RejectLicenseViolation, fmt.Sprintf("%s policy does not allow excerpts", policy.Name))
			continue
		}
		if example != "" {
			example = validate.ApplyLicenseConstraints(validate.CleanText(example), policy)
		}

		if opts.MaxTerms > 0 && len(pending) >= opts.MaxTerms {
			j.reject(c.Phrase, model.RejectMaxTerms, fmt.Sprintf("limit of %d terms reached", opts.MaxTerms))
			continue
		}

		pending = append(pending, &pendingTerm{
			term: model.MinedTerm{
				Phrase:       c.Phrase,
				Definition:   constrained,
				Example:      example,
				Score:        math.Min(1, c.Scores.FinalScore()),
				SafetyStatus: safety.Status(),
				Attribution:  validate.Attribution(policy, validate.Domain(doc.URL)),
				SourceURL:    doc.URL,
			},
			doc:    doc,
			policy: policy,
		})
	}

	j.logger.Debug().
		Int("accepted", len(pending)).
		Int("rejected", len(j.result.Rejected)).
		Msg("filtering complete")
	return pending
}

// refine rewrites accepted definitions when refinement is enabled and the
// source licence allows derivative text. Refined text that fails the
// safety check is discarded.
func (m *Miner) refine(ctx context.Context, j *job, pending []*pendingTerm, opts model.MiningOptions) {
	ropts := refine.OptionsFrom(opts, m.concurrency)
	ropts.Model = m.llmModel
	ropts.MaxTokens = m.llmTokens
	refiner := refine.New(m.provider, ropts, refine.WithLogger(j.logger), refine.WithMetrics(m.metrics))
	if !refiner.Enabled() {
		if opts.EnableAIRefinement {
			j.note("refinement requested but no completion provider is configured")
		}
		return
	}

	reqs := make([]refine.Request, 0, len(pending))
	targets := make([]*pendingTerm, 0, len(pending))
	for _, p := range pending {
		if !p.policy.AllowDerivative {
			continue
		}
		reqs = append(reqs, refine.Request{
			Term:       p.term.Phrase,
			Definition: p.term.Definition,
			SourceText: p.doc.Text,
		})
		targets = append(targets, p)
	}
	if skipped := len(pending) - len(targets); skipped > 0 {
		j.note("%d terms kept original definitions: source policy forbids derivative text", skipped)
	}

	for i, res := range refiner.RefineBatch(ctx, reqs) {
		p := targets[i]
		p.term.Refinement = &res
		if !res.WasRefined {
			j.result.Stats.RefineFallbacks++
			continue
		}

		refined := validate.CleanText(res.RefinedDefinition)
		if !validate.Classify(refined, opts.StrictSafety).IsSafe {
			res.Warnings = append(res.Warnings, "refined definition failed the safety check; kept original")
			j.result.Stats.RefineFallbacks++
			continue
		}
		if refined = validate.ApplyLicenseConstraints(refined, p.policy); refined == "" {
			j.result.Stats.RefineFallbacks++
			continue
		}
		p.term.Definition = refined
		j.result.Stats.Refined++
	}
}

// freshest returns the most recently published document, or the first
// one when none carries a date
func freshest(docs []model.Document) *model.Document {
	if len(docs) == 0 {
		return nil
	}
	best := &docs[0]
	for i := range docs {
		p := docs[i].PublishedAt
		if p == nil {
			continue
		}
		if best.PublishedAt == nil || p.After(*best.PublishedAt) {
			best = &docs[i]
		}
	}
	return best
}
