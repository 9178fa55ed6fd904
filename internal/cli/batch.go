package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/pipeline"
	"github.com/ppiankov/vocabmine/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	eachSource   bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Mine vocabulary across many sources listed in a file",
	Long: `Batch reads one source per line ("<locator>" or "<type> <locator>",
# comments allowed) and fetches them in parallel:
- By default all documents are mined together as one corpus
- With --each every source is mined on its own into --output-dir

Example:
  vocabmine batch sources.txt
  vocabmine batch sources.txt --concurrency 8 --md vocab.md
  vocabmine batch sources.txt --each --output-dir ./vocab`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent fetch workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./vocabmine-out", "output directory for results")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&eachSource, "each", false, "mine each source separately")
	batchCmd.Flags().StringVar(&outMD, "md", "", "combined Markdown path (optional)")
	addMiningFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.FetchWorkers = concurrency
	}

	specs, err := worker.ReadSourcesFromFile(file)
	if err != nil {
		return fmt.Errorf("read sources: %w", err)
	}
	if len(specs) == 0 {
		return fmt.Errorf("%w: no sources in %s", model.ErrInvalidConfig, file)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Sources:      %d\n", len(specs))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.FetchWorkers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	renderer := pipeline.NewRenderer(!noFooter)
	if eachSource {
		return mineEach(ctx, a, renderer, specs)
	}

	result, err := a.miner.MineSources(ctx, specs, nil)
	if err != nil {
		return fmt.Errorf("mine failed: %w", err)
	}
	for _, stage := range result.Stages {
		for _, note := range stage.Notes {
			fmt.Fprintf(os.Stderr, "✗ %s\n", note)
		}
	}

	jsonPath := filepath.Join(outputDir, "vocab.json")
	return renderer.Render(result, jsonPath, outMD, true)
}

// mineEach mines every source as its own job on a bounded pool
func mineEach(ctx context.Context, a *app, renderer *pipeline.Renderer, specs []model.SourceSpec) error {
	type outcome struct {
		spec   model.SourceSpec
		result *model.Result
		err    error
	}

	jobs := make([]worker.Job[outcome], len(specs))
	for i, spec := range specs {
		jobs[i] = worker.JobFunc[outcome](func(ctx context.Context) outcome {
			result, err := a.miner.Mine(ctx, pipeline.Input{SourceURL: spec.Locator, SourceType: spec.Type})
			return outcome{spec: spec, result: result, err: err}
		})
	}

	results, ok := worker.Run(ctx, a.cfg.Concurrency.FetchWorkers, jobs)

	var succeeded, failed int
	for i, res := range results {
		if !ok[i] {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: not started\n", specs[i].Locator)
			continue
		}
		if res.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.spec.Locator, res.err)
			continue
		}
		if res.result.State == model.StagePartialFailure {
			failed++
		} else {
			succeeded++
		}

		slug := sanitizeFilename(res.spec.Locator)
		if err := renderer.RenderJSON(res.result, filepath.Join(outputDir, slug+".json")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", res.spec.Locator, err)
			continue
		}
		if err := renderer.RenderMarkdown(res.result, filepath.Join(outputDir, slug+".md")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", res.spec.Locator, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d terms (%s)\n", res.spec.Locator, len(res.result.Terms), res.result.State)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d sources\n", len(specs))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", succeeded)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")
	return nil
}

// sanitizeFilename turns a locator into a file name stem
func sanitizeFilename(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "file://")

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = strings.Trim(replacer.Replace(s), "_.-")

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "source"
	}
	return s
}
