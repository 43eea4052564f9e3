package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/config"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewClient builds the client for the configured provider.
func NewClient(cfg *config.AIConfig, logger *zap.Logger) (Client, error) {
	clientCfg := &Config{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(clientCfg, logger)
	case ProviderAnthropic:
		// The default endpoint is Groq's OpenAI-compatible URL, which Anthropic cannot use.
		if clientCfg.Endpoint == config.DefaultAIEndpoint {
			clientCfg.Endpoint = ""
		}
		return NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
