// Package config loads exfill settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/exfill-go/pkg/exfill"
	"github.com/ukaji3/exfill-go/pkg/exfill/llm"
	"github.com/ukaji3/exfill-go/pkg/exfill/retrieval"
	"gopkg.in/yaml.v3"
)

// Supported generation providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// ValidProviders lists the accepted llm.provider values.
var ValidProviders = []string{ProviderGemini, ProviderAnthropic}

// Config holds all exfill settings.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Pricing   llm.Pricing     `yaml:"pricing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the generation service.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	// MaxAttempts bounds calls per request; 1 disables retry.
	MaxAttempts int `yaml:"max_attempts"`
	// RetryBackoff is the base delay between attempts.
	RetryBackoff string `yaml:"retry_backoff"`
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// StoreConfig locates the evidence store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// PipelineConfig configures answering.
type PipelineConfig struct {
	Strategy     string `yaml:"strategy"`
	Workers      int    `yaml:"workers"`
	TopK         int    `yaml:"top_k"`
	Organization string `yaml:"organization"`
	Sheet        string `yaml:"sheet"`
	OutputPrefix string `yaml:"output_prefix"`
	// Trace is a file that receives the reasoning trace of every unit.
	Trace string `yaml:"trace"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:     ProviderGemini,
			Timeout:      "120s",
			MaxTokens:    10000,
			MaxAttempts:  1,
			RetryBackoff: "2s",
		},
		Store: StoreConfig{
			Path: filepath.Join(".exfill", "evidence.db"),
		},
		Pipeline: PipelineConfig{
			Strategy:     string(exfill.StrategyBatch),
			Workers:      exfill.DefaultWorkers,
			TopK:         retrieval.DefaultTopK,
			OutputPrefix: exfill.DefaultOutputPrefix,
		},
		Pricing: llm.DefaultPricing(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. An empty or missing path yields
// the defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("EXFILL_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("EXFILL_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("EXFILL_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case ProviderAnthropic:
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	if v := os.Getenv("EXFILL_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if v := os.Getenv("EXFILL_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("EXFILL_STRATEGY"); v != "" {
		c.Pipeline.Strategy = v
	}
	if v := os.Getenv("EXFILL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EXFILL_WORKERS %q: %w", v, err)
		}
		c.Pipeline.Workers = n
	}
	if v := os.Getenv("EXFILL_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.Level = "debug"
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if _, err := exfill.ParseStrategy(c.Pipeline.Strategy); err != nil {
		return err
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.TopK <= 0 {
		return fmt.Errorf("pipeline.top_k must be positive, got %d", c.Pipeline.TopK)
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("llm.max_attempts must be positive, got %d", c.LLM.MaxAttempts)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	if _, err := c.LLMRetryBackoff(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %s (valid: json, console)", c.Logging.Format)
	}
	return nil
}

// LLMTimeout returns the parsed llm.timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return parseDuration("llm.timeout", c.LLM.Timeout)
}

// LLMRetryBackoff returns the parsed llm.retry_backoff.
func (c *Config) LLMRetryBackoff() (time.Duration, error) {
	return parseDuration("llm.retry_backoff", c.LLM.RetryBackoff)
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// PipelineOptions converts the configuration into pipeline options.
func (c *Config) PipelineOptions() (exfill.Options, error) {
	strategy, err := exfill.ParseStrategy(c.Pipeline.Strategy)
	if err != nil {
		return exfill.Options{}, err
	}
	return exfill.Options{
		Strategy:     strategy,
		Workers:      c.Pipeline.Workers,
		TopK:         c.Pipeline.TopK,
		Organization: c.Pipeline.Organization,
		Sheet:        c.Pipeline.Sheet,
		OutputPrefix: c.Pipeline.OutputPrefix,
		Pricing:      c.Pricing,
	}, nil
}
