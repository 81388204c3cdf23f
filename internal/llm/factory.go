package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/config"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// NewProvider builds the backend named by cfg.Provider. Missing credentials are
// reported as *errors.ConfigurationError before any request is made.
func NewProvider(ctx context.Context, cfg config.APIConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOllama, "":
		if cfg.OllamaURL == "" {
			return nil, errors.NewConfigurationError("OLLAMA_URL is required for provider ollama", "OLLAMA_URL")
		}
		return NewOpenAIProvider(OpenAIProviderConfig{
			Name:    config.ProviderOllama,
			BaseURL: cfg.OllamaURL,
			Model:   cfg.Model,
		}, logger), nil

	case config.ProviderGroq:
		if cfg.GroqKey == "" || cfg.GroqURL == "" {
			return nil, errors.NewConfigurationError("groq requires GROQ_API_KEY and GROQ_URL", "GROQ_API_KEY")
		}
		return NewOpenAIProvider(OpenAIProviderConfig{
			Name:        config.ProviderGroq,
			BaseURL:     cfg.GroqURL,
			APIKey:      cfg.GroqKey,
			Model:       cfg.Model,
			RateLimited: true,
		}, logger), nil

	case config.ProviderZai:
		if cfg.ZaiKey == "" || cfg.ZaiURL == "" {
			return nil, errors.NewConfigurationError("zai requires ZAI_API_KEY and ZAI_API_URL", "ZAI_API_KEY")
		}
		return NewOpenAIProvider(OpenAIProviderConfig{
			Name:        config.ProviderZai,
			BaseURL:     cfg.ZaiURL,
			APIKey:      cfg.ZaiKey,
			Model:       cfg.Model,
			RateLimited: true,
		}, logger), nil

	case config.ProviderGemini:
		if cfg.GeminiKey == "" {
			return nil, errors.NewConfigurationError("GEMINI_API_KEY is required for provider gemini", "GEMINI_API_KEY")
		}
		provider, err := NewGeminiProvider(ctx, cfg.GeminiKey, cfg.Model, logger)
		if err != nil {
			return nil, err
		}
		return provider, nil
	}

	return nil, errors.NewConfigurationError("unknown API_PROVIDER "+cfg.Provider, "API_PROVIDER")
}
