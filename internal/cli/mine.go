package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/pipeline"
)

var (
	outJSON    string
	outMD      string
	inlineText string
	textFile   string
	sourceType string
	title      string
)

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine [url|path]",
	Short: "Mine vocabulary from a single source",
	Long: `Mine fetches one source and emits its most salient defined terms:
- Fetch through the matching adapter (html, rss, api, wikipedia, wiktionary, youtube, file)
- Extract and rank n-gram candidates
- Drop unsafe content and respect the source's licensing policy
- Optionally refine definitions with an LLM using only source evidence

Example:
  vocabmine mine https://en.wikipedia.org/wiki/Machine_learning
  vocabmine mine ./notes/**/*.md --type file --md vocab.md
  vocabmine mine --text-file article.txt https://example.com/article
  vocabmine mine https://example.com/blog --refine --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMine,
}

func init() {
	rootCmd.AddCommand(mineCmd)

	mineCmd.Flags().StringVar(&outJSON, "json", "vocab.json", "output JSON path (- for stdout, empty to skip)")
	mineCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	mineCmd.Flags().StringVar(&inlineText, "text", "", "mine this text instead of fetching; the argument only drives licensing")
	mineCmd.Flags().StringVar(&textFile, "text-file", "", "mine the contents of this file instead of fetching")
	mineCmd.Flags().StringVar(&sourceType, "type", "", "source type (default: detected from the locator)")
	mineCmd.Flags().StringVar(&title, "title", "", "document title for inline text")
	addMiningFlags(mineCmd)
}

func runMine(cmd *cobra.Command, args []string) error {
	input, err := mineInput(args)
	if err != nil {
		return err
	}

	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Mining: %s\n", describeInput(input))
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	result, err := a.miner.Mine(ctx, input)
	if err != nil {
		return fmt.Errorf("mine failed: %w", err)
	}

	if err := pipeline.NewRenderer(!noFooter).Render(result, outJSON, outMD, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}

func mineInput(args []string) (pipeline.Input, error) {
	in := pipeline.Input{
		SourceType: model.SourceType(sourceType),
		Title:      title,
		SourceText: inlineText,
	}
	if len(args) == 1 {
		in.SourceURL = args[0]
	}

	if textFile != "" {
		if in.SourceText != "" {
			return in, fmt.Errorf("%w: --text and --text-file are mutually exclusive", model.ErrInvalidConfig)
		}
		data, err := os.ReadFile(textFile)
		if err != nil {
			return in, fmt.Errorf("read %s: %w", textFile, err)
		}
		in.SourceText = string(data)
		if in.Title == "" {
			in.Title = textFile
		}
	}

	if in.SourceURL == "" && in.SourceText == "" {
		return in, fmt.Errorf("%w: provide a url or path, or --text/--text-file", model.ErrInvalidConfig)
	}
	return in, nil
}

func describeInput(in pipeline.Input) string {
	switch {
	case in.SourceText != "" && in.SourceURL != "":
		return fmt.Sprintf("%d bytes of text (licensed as %s)", len(in.SourceText), in.SourceURL)
	case in.SourceText != "":
		return fmt.Sprintf("%d bytes of text", len(in.SourceText))
	default:
		return in.SourceURL
	}
}
