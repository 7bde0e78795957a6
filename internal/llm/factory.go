package llm

import (
	"fmt"
	"strings"

	"github.com/avvvet/storebuddy/internal/config"
)

// NewProvider creates the provider selected by LLM_PROVIDER
func NewProvider(cfg *config.Config) (Provider, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
