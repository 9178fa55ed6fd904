package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabmine/internal/metrics"
	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/pipeline"
	"github.com/ppiankov/vocabmine/internal/store"
)

// Per-command flags shared by mine, batch and watch
var (
	timeout     time.Duration
	userAgent   string
	noCache     bool
	noFooter    bool
	llmProvider string
	llmModel    string

	maxTerms      int
	minFreq       int
	requireDefs   bool
	refineEnabled bool
	strictSafety  bool
	recency       bool
)

// app holds the wired runtime for one command invocation
type app struct {
	cfg     *model.Config
	logger  zerolog.Logger
	miner   *pipeline.Miner
	metrics *metrics.Metrics
	store   *store.Store
}

func newLogger(cfg *model.Config, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Output.Verbose {
		level = zerolog.DebugLevel
	}
	if !cfg.Output.LogJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// newApp wires the logger, metrics endpoint, SQLite sink and miner. The
// metrics server stops when ctx ends.
func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	a := &app{cfg: cfg, logger: newLogger(cfg, os.Stderr)}

	var opts []pipeline.Option
	if cfg.Metrics.Addr != "" {
		a.metrics = metrics.New()
		opts = append(opts, pipeline.WithMetrics(a.metrics))
		go func() {
			if err := a.metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				a.logger.Warn().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics server stopped")
			}
		}()
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		opts = append(opts, pipeline.WithSink(st))
	}

	miner, err := pipeline.NewMinerFromConfig(cfg, a.logger, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.miner = miner
	return a, nil
}

// Close stops watches and closes the store
func (a *app) Close() {
	if a.miner != nil {
		a.miner.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close store")
		}
	}
}

// addMiningFlags registers the flags that tune a mining job
func addMiningFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown output")

	cmd.Flags().IntVar(&maxTerms, "max-terms", 0, "maximum terms to emit (default from config)")
	cmd.Flags().IntVar(&minFreq, "min-freq", 0, "minimum candidate frequency (default from config)")
	cmd.Flags().BoolVar(&requireDefs, "require-definitions", false, "drop terms without a definition and example in the source")
	cmd.Flags().BoolVar(&strictSafety, "strict", false, "also reject sensitive content")
	cmd.Flags().BoolVar(&recency, "recency", false, "boost terms from fresh content")

	cmd.Flags().BoolVar(&refineEnabled, "refine", false, "refine definitions with an LLM")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// configFromFlags loads the configuration and applies the mining flags
// the user actually set
func configFromFlags(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("timeout") && timeout < cfg.HTTP.Timeout {
		cfg.HTTP.Timeout = timeout
	}
	if flags.Changed("max-terms") {
		cfg.Mining.MaxTerms = maxTerms
	}
	if flags.Changed("min-freq") {
		cfg.Mining.MinFreq = minFreq
	}
	if flags.Changed("require-definitions") {
		cfg.Mining.RequireDefinitions = requireDefs
	}
	if flags.Changed("strict") {
		cfg.Mining.StrictSafety = strictSafety
	}
	if flags.Changed("recency") {
		cfg.Mining.Recency.Enabled = recency
	}
	if flags.Changed("refine") {
		cfg.Mining.EnableAIRefinement = refineEnabled
	}
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = strings.ToLower(llmProvider)
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}

	if cfg.Mining.EnableAIRefinement && cfg.LLM.Provider == "" {
		fmt.Fprintf(os.Stderr, "⚠ Refinement requested without an LLM provider; definitions stay as extracted\n")
	}

	if err := cfg.Mining.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
