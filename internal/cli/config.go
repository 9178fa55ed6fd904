package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/vocabmine/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vocabmine configuration",
	Long: `Manage vocabmine configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (VOCABMINE_*)
3. Config file (~/.vocabmine/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, environment variables and flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(redacted(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, string(yamlData))
		fmt.Fprintln(out, "Configuration hierarchy (highest to lowest priority):")
		fmt.Fprintln(out, "  1. CLI flags")
		fmt.Fprintln(out, "  2. Environment variables (VOCABMINE_*, OPENAI_API_KEY, ANTHROPIC_API_KEY, OLLAMA_BASE_URL, YOUTUBE_API_KEY)")
		fmt.Fprintln(out, "  3. Config file (~/.vocabmine/config.yaml)")
		fmt.Fprintln(out, "  4. Defaults")

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.vocabmine/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath := filepath.Join(home, ".vocabmine", "config.yaml")
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(cmd.OutOrStdout(), "\nTo view the effective configuration:\n  vocabmine config show\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// loadConfig merges defaults, the config file, VOCABMINE_* variables and
// the global flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		if err := readConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnvKnobs(cfg, viper.GetViper())

	if verbose {
		cfg.Output.Verbose = true
	}
	if logJSON {
		cfg.Output.LogJSON = true
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}

	if err := cfg.Mining.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readConfigFile overlays a YAML config file on cfg; keys the file omits
// keep their current values
func readConfigFile(path string, cfg *model.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse %s: %v", model.ErrInvalidConfig, path, err)
	}
	return nil
}

// applyEnvKnobs applies the per-deployment knobs, e.g.
// VOCABMINE_MAX_DEFINITION_WORDS when v reads the VOCABMINE environment
func applyEnvKnobs(cfg *model.Config, v *viper.Viper) {
	if v.IsSet("max_definition_words") {
		cfg.Mining.MaxDefinitionWords = v.GetInt("max_definition_words")
	}
	if v.IsSet("ai_refine_enabled") {
		cfg.Mining.EnableAIRefinement = v.GetBool("ai_refine_enabled")
	}
	if v.IsSet("min_ai_confidence") {
		cfg.Mining.MinConfidence = v.GetFloat64("min_ai_confidence")
	}
	if v.IsSet("rss_item_limit") {
		cfg.Sources.RSSItemLimit = v.GetInt("rss_item_limit")
	}
	if cfg.Sources.YouTubeAPIKey == "" {
		cfg.Sources.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	}
}

func redacted(cfg *model.Config) *model.Config {
	out := *cfg
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "********"
	}
	if out.Sources.YouTubeAPIKey != "" {
		out.Sources.YouTubeAPIKey = "********"
	}
	return &out
}

func writeDefaultConfig(configPath string) (err error) {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'vocabmine config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# vocabmine configuration\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (VOCABMINE_*)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")
	printf("%s", yamlData)
	printf("\n# API keys are better kept in the environment:\n")
	printf("#   export OPENAI_API_KEY=sk-...\n")
	printf("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")
	printf("#   export YOUTUBE_API_KEY=...\n")

	return err
}
