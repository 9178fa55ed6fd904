package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/store"
)

const mlText = `Machine learning is a subset of artificial intelligence. Machine learning systems learn patterns from data.
Deep learning, a specialized subset of machine learning, uses neural networks with many layers.
Neural networks are loosely inspired by the brain.`

func TestReadConfigFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
mining:
  max_terms: 7
  require_definitions: true
http:
  timeout: 5s
licensing:
  domain_policies:
    example.org:
      name: example
      allow_examples: true
      max_excerpt_chars: 80
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := model.DefaultConfig()
	if err := readConfigFile(path, cfg); err != nil {
		t.Fatalf("readConfigFile failed: %v", err)
	}

	if cfg.Mining.MaxTerms != 7 || !cfg.Mining.RequireDefinitions {
		t.Errorf("Expected mining overrides, got %+v", cfg.Mining)
	}
	if cfg.HTTP.Timeout.Seconds() != 5 {
		t.Errorf("Expected 5s timeout, got %v", cfg.HTTP.Timeout)
	}
	if cfg.Mining.MinConfidence != 0.7 {
		t.Errorf("Expected untouched default min confidence 0.7, got %v", cfg.Mining.MinConfidence)
	}
	if cfg.HTTP.UserAgent == "" {
		t.Error("Expected default user agent to survive the overlay")
	}
	if p, ok := cfg.Licensing.DomainPolicies["example.org"]; !ok || p.MaxExcerptChars != 80 {
		t.Errorf("Expected example.org policy, got %+v", cfg.Licensing.DomainPolicies)
	}
}

func TestReadConfigFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mining: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := readConfigFile(path, model.DefaultConfig())
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestApplyEnvKnobs(t *testing.T) {
	t.Setenv("VOCABMINE_MAX_DEFINITION_WORDS", "12")
	t.Setenv("VOCABMINE_AI_REFINE_ENABLED", "true")
	t.Setenv("VOCABMINE_MIN_AI_CONFIDENCE", "0.9")
	t.Setenv("VOCABMINE_RSS_ITEM_LIMIT", "3")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")

	v := viper.New()
	v.SetEnvPrefix("VOCABMINE")
	v.AutomaticEnv()

	cfg := model.DefaultConfig()
	applyEnvKnobs(cfg, v)

	if cfg.Mining.MaxDefinitionWords != 12 {
		t.Errorf("Expected 12 max definition words, got %d", cfg.Mining.MaxDefinitionWords)
	}
	if !cfg.Mining.EnableAIRefinement {
		t.Error("Expected AI refinement enabled")
	}
	if cfg.Mining.MinConfidence != 0.9 {
		t.Errorf("Expected min confidence 0.9, got %v", cfg.Mining.MinConfidence)
	}
	if cfg.Sources.RSSItemLimit != 3 {
		t.Errorf("Expected RSS item limit 3, got %d", cfg.Sources.RSSItemLimit)
	}
	if cfg.Sources.YouTubeAPIKey != "yt-key" {
		t.Errorf("Expected YouTube key from environment, got %q", cfg.Sources.YouTubeAPIKey)
	}
}

func TestApplyEnvKnobs_Unset(t *testing.T) {
	v := viper.New()
	v.SetEnvPrefix("VOCABMINE_TEST_UNSET")
	v.AutomaticEnv()

	cfg := model.DefaultConfig()
	applyEnvKnobs(cfg, v)

	defaults := model.DefaultConfig()
	if cfg.Mining.MaxDefinitionWords != defaults.Mining.MaxDefinitionWords {
		t.Errorf("Expected default %d, got %d", defaults.Mining.MaxDefinitionWords, cfg.Mining.MaxDefinitionWords)
	}
	if cfg.Sources.RSSItemLimit != defaults.Sources.RSSItemLimit {
		t.Errorf("Expected default %d, got %d", defaults.Sources.RSSItemLimit, cfg.Sources.RSSItemLimit)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".vocabmine", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	cfg := model.DefaultConfig()
	cfg.Mining.MaxTerms = 0
	if err := readConfigFile(path, cfg); err != nil {
		t.Fatalf("Expected the written file to parse: %v", err)
	}
	if cfg.Mining.MaxTerms != model.DefaultMiningOptions().MaxTerms {
		t.Errorf("Expected default max terms in file, got %d", cfg.Mining.MaxTerms)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected an error when the config already exists")
	}
}

func TestRedacted(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"

	out := redacted(cfg)
	if out.LLM.APIKey == "sk-secret" {
		t.Error("Expected API key redacted")
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Error("Expected the original config untouched")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"https://en.wikipedia.org/wiki/Machine_learning": "en.wikipedia.org_wiki_Machine_learning",
		"http://example.com/a?b=c":                      "example.com_a_b=c",
		"./notes/my file.md":                            "notes_my-file.md",
		"///":                                           "source",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}

	long := "https://example.com/" + strings.Repeat("a", 200)
	if got := sanitizeFilename(long); len(got) != 100 {
		t.Errorf("Expected 100 chars, got %d", len(got))
	}
}

func TestMineInput(t *testing.T) {
	t.Cleanup(func() { inlineText, textFile, sourceType, title = "", "", "", "" })

	if _, err := mineInput(nil); !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig without input, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "article.txt")
	if err := os.WriteFile(path, []byte(mlText), 0o644); err != nil {
		t.Fatal(err)
	}
	textFile = path
	in, err := mineInput([]string{"https://example.com/article"})
	if err != nil {
		t.Fatalf("mineInput failed: %v", err)
	}
	if in.SourceText != mlText || in.SourceURL != "https://example.com/article" || in.Title != path {
		t.Errorf("Unexpected input: %+v", in)
	}

	inlineText = "also text"
	if _, err := mineInput(nil); !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for --text with --text-file, got %v", err)
	}
}

func TestMineCommand_InlineTextToStore(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "vocab.json")
	db := filepath.Join(dir, "runs.db")

	rootCmd.SetArgs([]string{"mine", "--text", mlText, "--json", jsonPath, "--no-cache", "--db", db})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		inlineText, dbPath = "", ""
	})

	if err := Execute(context.Background()); err != nil {
		t.Fatalf("mine command failed: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Expected JSON output: %v", err)
	}
	var result model.Result
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Expected valid JSON: %v", err)
	}
	if len(result.Terms) == 0 {
		t.Fatal("Expected mined terms")
	}

	st, err := store.Open(context.Background(), db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	runs, err := st.Runs(context.Background(), 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].JobID != result.JobID {
		t.Errorf("Expected run %s saved, got %+v", result.JobID, runs)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(buf.String(), "vocabmine v") {
		t.Errorf("Expected version line, got %q", buf.String())
	}
}
