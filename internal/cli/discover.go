package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/source"
)

var (
	discoverType    string
	discoverMax     int
	discoverJSON    bool
	discoverTimeout time.Duration
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover <topic>",
	Short: "List candidate sources for a topic",
	Long: `Discover asks an adapter for sources about a topic. The output can be
fed to "vocabmine batch".

- wikipedia, wiktionary: search API
- rss: item links of the feed given as the topic
- file: files matching the glob given as the topic
- html, api: nothing to discover

Example:
  vocabmine discover "machine learning" --max 5
  vocabmine discover https://example.com/feed.xml --type rss
  vocabmine discover "notes/**/*.md" --type file`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVar(&discoverType, "type", string(model.SourceWikipedia), "source type to discover with")
	discoverCmd.Flags().IntVar(&discoverMax, "max", 10, "maximum sources to list")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "print JSON instead of batch lines")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 30*time.Second, "overall timeout")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), discoverTimeout)
	defer cancel()

	logger := newLogger(cfg, os.Stderr)
	fetcher, _ := source.NewFetcherFromConfig(cfg, logger)
	router := source.NewDefaultRouter(cfg, fetcher)

	t := model.ParseSourceType(discoverType)
	found, err := router.Discover(ctx, t, args[0], discoverMax)
	if err != nil {
		return fmt.Errorf("discover failed: %w", err)
	}

	if discoverJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}
	printDiscovered(cmd.OutOrStdout(), found)
	fmt.Fprintf(os.Stderr, "✓ Found %d sources\n", len(found))
	return nil
}

// printDiscovered writes one batch-file line per source with the title as a comment
func printDiscovered(w io.Writer, found []model.SourceMetadata) {
	for _, meta := range found {
		if meta.Title != "" {
			fmt.Fprintf(w, "# %s\n", meta.Title)
		}
		fmt.Fprintf(w, "%s %s\n", meta.SourceType, meta.URL)
	}
}
