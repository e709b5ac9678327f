package llm

import (
	"time"

	"github.com/helixir/research-assistant/internal/domain"
)

// Provider names accepted by NewProvider.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOllama      = "ollama"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
)

// FactoryConfig holds the parameters needed to create a Provider.
// This is defined in the llm package to avoid importing the config package,
// keeping the llm package free of infrastructure dependencies.
type FactoryConfig struct {
	// Provider is the provider name.
	Provider string
	// Model is the model identifier. Empty selects the provider default.
	Model string
	// BaseURL is the API base URL. Empty selects the provider default.
	BaseURL string
	// APIKey is the provider credential. Required for openai and anthropic.
	APIKey string
	// Timeout bounds one HTTP call. Zero leaves it unbounded.
	Timeout time.Duration
	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration
}

// NewProvider creates a Provider based on the configuration. Unsupported
// providers and missing API keys are *domain.ConfigError.
func NewProvider(cfg FactoryConfig) (Provider, error) {
	switch cfg.Provider {
	case ProviderHuggingFace:
		return NewHuggingFaceProvider(HuggingFaceConfig{
			APIToken: cfg.APIKey,
			Model:    cfg.Model,
			BaseURL:  cfg.BaseURL,
		}, cfg.Timeout, cfg.MaxRetries, cfg.RetryDelay), nil
	case ProviderOllama:
		return NewOllamaProvider(OllamaConfig{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}, cfg.Timeout, cfg.MaxRetries, cfg.RetryDelay), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, domain.NewConfigError("llm.api_key", "openai requires an API key")
		}
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}, cfg.Timeout, cfg.MaxRetries, cfg.RetryDelay), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, domain.NewConfigError("llm.api_key", "anthropic requires an API key")
		}
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}, cfg.Timeout, cfg.MaxRetries, cfg.RetryDelay), nil
	default:
		return nil, domain.NewConfigError("llm.provider", "unsupported LLM provider: \""+cfg.Provider+"\"")
	}
}
