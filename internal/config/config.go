package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Catalog backends
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Classifier backends
const (
	ClassifierLLM  = "llm"
	ClassifierNATS = "nats"
)

// LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

type Config struct {
	// Service configuration
	ServiceName string   `env:"SERVICE_NAME" envDefault:"storebuddy"`
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string   `env:"LOG_FORMAT" envDefault:"json"`

	// Catalog configuration
	CatalogBackend  string        `env:"CATALOG_BACKEND" envDefault:"file"`
	CatalogPath     string        `env:"CATALOG_PATH" envDefault:"data/inventory.json"`
	CatalogRedisKey string        `env:"CATALOG_REDIS_KEY" envDefault:"catalog:snapshot"`
	CatalogLock     bool          `env:"CATALOG_LOCK" envDefault:"false"`
	CatalogLockTTL  time.Duration `env:"CATALOG_LOCK_TTL" envDefault:"10s"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Classifier configuration
	ClassifierBackend string        `env:"CLASSIFIER_BACKEND" envDefault:"llm"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"30s"`
	HistoryWindow     int           `env:"HISTORY_WINDOW" envDefault:"0"`

	// LLM configuration
	LLMProvider     string  `env:"LLM_PROVIDER" envDefault:"anthropic"`
	AnthropicAPIKey string  `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string  `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	OpenAIAPIKey    string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string  `env:"OPENAI_BASE_URL"`
	OpenAIModel     string  `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	MaxTokens       int     `env:"LLM_MAX_TOKENS" envDefault:"1000"`
	Temperature     float64 `env:"LLM_TEMPERATURE" envDefault:"0.1"`

	// NATS configuration
	NatsURL            string        `env:"NATS_URL"`
	NatsRequestSubject string        `env:"NATS_REQUEST_SUBJECT" envDefault:"intent.analyze"`
	NatsEventsSubject  string        `env:"NATS_EVENTS_SUBJECT" envDefault:"catalog.stock"`
	NatsTimeout        time.Duration `env:"NATS_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.CatalogBackend {
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown CATALOG_BACKEND %q", c.CatalogBackend)
	}

	switch c.ClassifierBackend {
	case ClassifierLLM:
		if err := c.ValidateLLM(); err != nil {
			return err
		}
	case ClassifierNATS:
		if c.NatsURL == "" {
			return fmt.Errorf("NATS_URL is required when CLASSIFIER_BACKEND=nats")
		}
	default:
		return fmt.Errorf("unknown CLASSIFIER_BACKEND %q", c.ClassifierBackend)
	}

	if c.HistoryWindow < 0 {
		return fmt.Errorf("HISTORY_WINDOW must not be negative")
	}
	return nil
}

// ValidateLLM checks that the selected provider has credentials.
func (c *Config) ValidateLLM() error {
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}
