package embedding

import (
	"fmt"
	"time"

	"github.com/helixir/research-assistant/internal/domain"
)

// FactoryConfig holds the parameters needed to create an Embedder. It mirrors the
// embedding section of the service configuration without importing it.
type FactoryConfig struct {
	// Provider is "huggingface", "ollama", "openai" or "hash". Empty selects the
	// offline hash embedder.
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	MaxTokens  int
	Timeout    time.Duration
	// CacheSize enables a CachedEmbedder when positive.
	CacheSize int
}

// New creates the configured Embedder, wrapped in a cache when CacheSize > 0.
func New(cfg FactoryConfig) (Embedder, error) {
	var base Embedder
	switch cfg.Provider {
	case "", "hash":
		base = NewHashEmbedder(cfg.Dimensions, cfg.MaxTokens)
	case "huggingface":
		base = NewHuggingFaceProvider(HuggingFaceConfig{
			APIToken:   cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			Timeout:    cfg.Timeout,
		})
	case "ollama":
		opts := []OllamaOption{}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		if cfg.Dimensions > 0 {
			opts = append(opts, WithDimensions(cfg.Dimensions))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		base = NewOllamaProvider(opts...)
	case "openai":
		if cfg.APIKey == "" {
			return nil, domain.NewConfigError("embedding.api_key", "openai embedding provider requires an API key")
		}
		base = NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, domain.NewConfigError("embedding.provider",
			fmt.Sprintf("unsupported embedding provider: %q (supported: huggingface, ollama, openai, hash)", cfg.Provider))
	}

	if cfg.CacheSize <= 0 {
		return base, nil
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return NewCachedEmbedder(base, cfg.CacheSize, maxTokens)
}
