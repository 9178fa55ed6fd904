package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/pipeline"
	"github.com/ppiankov/vocabmine/internal/worker"
)

var (
	watchInterval time.Duration
	watchDir      string
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <source>...",
	Short: "Re-mine sources on an interval or when files change",
	Long: `Watch mines each source immediately and again whenever it may have
changed: URLs on every --interval, local files on every write. The latest
result of each source is written to --output-dir (and to --db when set).
Runs until interrupted.

Sources use the batch line format: "<locator>" or "<type> <locator>".

Example:
  vocabmine watch https://example.com/feed.xml --interval 30m
  vocabmine watch ./notes/glossary.md --output-dir ./vocab
  vocabmine watch "wikipedia https://en.wikipedia.org/wiki/Rust_(programming_language)" --db runs.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", pipeline.DefaultWatchInterval, "re-mine interval for URL sources")
	watchCmd.Flags().StringVar(&watchDir, "output-dir", "./vocabmine-watch", "directory for the latest result of each source")
	addMiningFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	if watchInterval <= 0 {
		return fmt.Errorf("%w: --interval must be positive", model.ErrInvalidConfig)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(watchDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	renderer := pipeline.NewRenderer(!noFooter)
	scheduler := a.miner.Scheduler()
	scheduler.OnResult(func(w pipeline.Watch, result *model.Result, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", w.Spec.Locator, err)
			return
		}
		path := filepath.Join(watchDir, sanitizeFilename(w.Spec.Locator)+".json")
		if err := renderer.RenderJSON(result, path); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", w.Spec.Locator, err)
			return
		}
		fmt.Fprintf(os.Stderr, "%s ", time.Now().Format(time.TimeOnly))
		renderer.RenderSummary(os.Stderr, result)
	})

	for _, arg := range args {
		spec := worker.ParseSourceLine(arg)
		id, err := a.miner.Watch(pipeline.Watch{Spec: spec, Interval: watchInterval})
		if err != nil {
			return fmt.Errorf("watch %s: %w", spec.Locator, err)
		}
		fmt.Fprintf(os.Stderr, "✓ Watching %s (%s, id %s)\n", spec.Locator, spec.Type, id)
	}

	<-ctx.Done()
	fmt.Fprintf(os.Stderr, "\nStopping %d watches...\n", len(scheduler.List()))
	return nil
}
