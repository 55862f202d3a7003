package llm

import (
	"fmt"

	"github.com/logtrail/logtrail/internal/config"
)

// New builds the configured provider's client wrapped in the Supervised
// retry/timeout/circuit-breaker layer, matching the original's
// get_llm dispatch on LLM_PROVIDER.
func New(cfg config.LLMConfig) (*Supervised, error) {
	var inner Client
	switch cfg.Provider {
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an api key")
		}
		inner = NewAnthropicClient(cfg.APIKey, cfg.Model)
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		inner = NewOpenAIClient(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", cfg.Provider)
	}
	return NewSupervised(inner, cfg), nil
}
