package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete application configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Cache        CacheConfig        `yaml:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Mining       MiningOptions      `yaml:"mining"`
	Sources      SourcesConfig      `yaml:"sources"`
	LLM          LLMConfig          `yaml:"llm"`
	Licensing    LicensingConfig    `yaml:"licensing"`
	Store        StoreConfig        `yaml:"store"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Output       OutputConfig       `yaml:"output"`
}

// HTTPConfig configures outbound fetches
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty"`
	NoProxy       string        `yaml:"no_proxy,omitempty"`
	RetryAttempts int           `yaml:"retry_attempts"`
	MaxBackoff    time.Duration `yaml:"max_backoff"`
}

// CacheConfig configures the fetch cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// ConcurrencyConfig bounds fan-out
type ConcurrencyConfig struct {
	FetchWorkers      int           `yaml:"fetch_workers"`
	RefineConcurrency int           `yaml:"refine_concurrency"`
	RefineBatchDelay  time.Duration `yaml:"refine_batch_delay"`
}

// RateLimitingConfig is the per-domain request budget
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// SourcesConfig holds adapter settings
type SourcesConfig struct {
	RSSItemLimit  int    `yaml:"rss_item_limit"`
	RespectRobots bool   `yaml:"respect_robots"`
	YouTubeAPIKey string `yaml:"youtube_api_key,omitempty"`
	WikipediaLang string `yaml:"wikipedia_lang"`
}

// LLMConfig configures the completion provider used for refinement
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`
}

// LicensingConfig overrides the built-in source policy table
type LicensingConfig struct {
	DomainPolicies map[string]SourcePolicy `yaml:"domain_policies,omitempty"`
}

// StoreConfig configures the optional SQLite sink
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
	LogJSON bool `yaml:"log_json"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "vocabmine-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".vocabmine", "cache")
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:       20 * time.Second,
			UserAgent:     "vocabmine/0.1 (+https://github.com/ppiankov/vocabmine)",
			MaxBodyBytes:  2_000_000,
			RetryAttempts: 3,
			MaxBackoff:    10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     cacheDir,
			TTL:     time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers:      4,
			RefineConcurrency: 5,
			RefineBatchDelay:  time.Second,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Mining: DefaultMiningOptions(),
		Sources: SourcesConfig{
			RSSItemLimit:  10,
			RespectRobots: true,
			WikipediaLang: "en",
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 300,
		},
	}
}
