package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/vocabmine/internal/model"
)

// Renderer writes mining results as JSON, Markdown and a one-line summary
type Renderer struct {
	includeFooter bool
	stderr        io.Writer
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, stderr: os.Stderr}
}

// Render writes the configured outputs and prints the summary. A path of
// "-" writes to stdout; an empty path skips that format.
func (r *Renderer) Render(result *model.Result, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(result, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose && jsonPath != "-" {
			fmt.Fprintf(r.stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(result, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose && mdPath != "-" {
			fmt.Fprintf(r.stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	r.RenderSummary(r.stderr, result)
	return nil
}

// RenderJSON writes the result as indented JSON
func (r *Renderer) RenderJSON(result *model.Result, path string) error {
	return writeOutput(path, func(w io.Writer) error {
		return WriteJSON(w, result)
	})
}

// WriteJSON encodes the result to w
func WriteJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

// RenderMarkdown writes a human-readable report
func (r *Renderer) RenderMarkdown(result *model.Result, path string) error {
	return writeOutput(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(result))
		return err
	})
}

// Markdown formats the result as a Markdown document
func (r *Renderer) Markdown(result *model.Result) string {
	var b strings.Builder

	b.WriteString("# Mined Vocabulary\n\n")
	fmt.Fprintf(&b, "- Job: `%s`\n", result.JobID)
	fmt.Fprintf(&b, "- State: %s\n", result.State)
	fmt.Fprintf(&b, "- Started: %s\n", result.Started.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Source policy: %s\n\n", policySummary(result.Policy))

	b.WriteString("## Terms\n\n")
	if len(result.Terms) == 0 {
		b.WriteString("_No terms emitted._\n\n")
	}
	for i, term := range result.Terms {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, term.Phrase)
		fmt.Fprintf(&b, "%s\n\n", term.Definition)
		if term.Example != "" {
			fmt.Fprintf(&b, "> %s\n\n", term.Example)
		}
		fmt.Fprintf(&b, "Score %.3f · %s", term.Score, term.SafetyStatus)
		if term.Refinement != nil && term.Refinement.WasRefined {
			fmt.Fprintf(&b, " · refined (confidence %.2f)", term.Refinement.ConfidenceScore)
		}
		b.WriteString("\n")
		if term.Attribution != "" {
			fmt.Fprintf(&b, "\n_%s_\n", term.Attribution)
		}
		b.WriteString("\n")
	}

	if len(result.Rejected) > 0 {
		b.WriteString("## Rejected\n\n")
		b.WriteString("| Phrase | Reason | Detail |\n|---|---|---|\n")
		for _, rej := range result.Rejected {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", escapeCell(rej.Phrase), rej.Reason, escapeCell(rej.Detail))
		}
		b.WriteString("\n")
	}

	s := result.Stats
	b.WriteString("## Stats\n\n")
	fmt.Fprintf(&b, "| Documents | Failed | Sentences | Candidates | Ranked | Safety filtered | License filtered | Definition missed | Refined | Emitted |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d | %d | %d | %d |\n\n",
		s.Documents, s.FailedDocuments, s.Sentences, s.Candidates, s.Ranked,
		s.SafetyFiltered, s.LicenseFiltered, s.DefinitionMissed, s.Refined, s.Emitted)

	var notes []string
	for _, stage := range result.Stages {
		for _, n := range stage.Notes {
			notes = append(notes, fmt.Sprintf("- %s: %s", stage.Stage, n))
		}
	}
	if len(notes) > 0 {
		b.WriteString("## Notes\n\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\nGenerated by vocabmine. Definitions are excerpted under each source's licence; check attribution before reuse.\n")
	}
	return b.String()
}

// RenderSummary prints a one-line summary
func (r *Renderer) RenderSummary(w io.Writer, result *model.Result) {
	s := result.Stats
	fmt.Fprintf(w, "%s: %d terms from %d documents (%d rejected: %d safety, %d license, %d definition)\n",
		result.State, s.Emitted, s.Documents, len(result.Rejected),
		s.SafetyFiltered, s.LicenseFiltered, s.DefinitionMissed)
}

func policySummary(p model.SourcePolicy) string {
	if p.Name == "" {
		return "none"
	}
	parts := []string{p.Name}
	switch {
	case p.Blocked:
		parts = append(parts, "blocked")
	case !p.AllowExamples:
		parts = append(parts, "no excerpts")
	case p.MaxExcerptChars > 0:
		parts = append(parts, fmt.Sprintf("excerpts up to %d chars", p.MaxExcerptChars))
	}
	if p.AllowDerivative {
		parts = append(parts, "derivative use allowed")
	}
	return strings.Join(parts, ", ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
