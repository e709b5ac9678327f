package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/helixir/research-assistant/internal/domain"
)

const (
	// DefaultOpenAIURL is the default OpenAI API base URL.
	DefaultOpenAIURL = "https://api.openai.com"

	// DefaultOpenAIModel is the default OpenAI embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"
)

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
	MaxTokens  int
	Timeout    time.Duration
}

// OpenAIProvider generates embeddings with the OpenAI embeddings endpoint.
type OpenAIProvider struct {
	config OpenAIConfig
	client *http.Client
}

var _ Embedder = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI embedder. Zero fields select defaults.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAIProvider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Embed requests an embedding of the truncated text with the configured dimensions.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.config.APIKey == "" {
		return nil, domain.NewEmbeddingError(p.config.Model, "API key is not configured", nil)
	}

	body, err := json.Marshal(openAIEmbedRequest{
		Model:      p.config.Model,
		Input:      TruncateTokens(text, p.config.MaxTokens),
		Dimensions: p.config.Dimensions,
	})
	if err != nil {
		return nil, domain.NewEmbeddingError(p.config.Model, "marshaling request", err)
	}

	var result openAIEmbedResponse
	headers := map[string]string{"Authorization": "Bearer " + p.config.APIKey}
	if err := postJSON(ctx, p.client, p.config.BaseURL+"/v1/embeddings", body, headers, &result); err != nil {
		return nil, domain.NewEmbeddingError(p.config.Model, "openai request failed", err)
	}

	if len(result.Data) == 0 {
		return nil, domain.NewEmbeddingError(p.config.Model, "response contained no embeddings", nil)
	}
	vec := result.Data[0].Embedding
	if len(vec) != p.config.Dimensions {
		return nil, domain.NewEmbeddingError(p.config.Model,
			fmt.Sprintf("unexpected embedding dimensions: got %d, want %d", len(vec), p.config.Dimensions), nil)
	}
	return vec, nil
}

// ModelName returns the configured model.
func (p *OpenAIProvider) ModelName() string {
	return p.config.Model
}

// Dimensions returns the configured vector length.
func (p *OpenAIProvider) Dimensions() int {
	return p.config.Dimensions
}

type openAIEmbedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}
