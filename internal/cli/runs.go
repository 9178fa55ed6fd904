package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/store"
)

var runsLimit int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs [job-id]",
	Short: "List saved runs or show the terms of one run",
	Long: `Runs reads the SQLite database written by --db.

Example:
  vocabmine runs --db vocab.db
  vocabmine runs --db vocab.db 6f1c2a4e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("%w: --db (or store.path) is required", model.ErrInvalidConfig)
	}
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	st, err := store.Open(cmd.Context(), cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if len(args) == 1 {
		terms, err := st.Terms(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printTerms(cmd.OutOrStdout(), terms)
		return nil
	}

	runs, err := st.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []store.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tSTARTED\tSTATE\tTERMS\tREJECTED\tPOLICY")
	for _, r := range runs {
		rejected := r.Stats.SafetyFiltered + r.Stats.LicenseFiltered + r.Stats.DefinitionMissed
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.JobID, r.Started.Local().Format(time.DateTime), r.State, r.Stats.Emitted, rejected, r.Policy)
	}
	tw.Flush()
}

func printTerms(w io.Writer, terms []model.MinedTerm) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tTERM\tDEFINITION")
	for _, t := range terms {
		fmt.Fprintf(tw, "%.3f\t%s\t%s\n", t.Score, t.Phrase, t.Definition)
	}
	tw.Flush()
}
