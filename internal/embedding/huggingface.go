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
	// DefaultHuggingFaceURL is the default Hugging Face inference API base URL.
	DefaultHuggingFaceURL = "https://api-inference.huggingface.co"

	// DefaultHuggingFaceModel is the default sentence-embedding model.
	DefaultHuggingFaceModel = "sentence-transformers/all-MiniLM-L6-v2"
)

// HuggingFaceConfig configures the Hugging Face embedder.
type HuggingFaceConfig struct {
	// APIToken is optional; anonymous requests are rate limited more aggressively.
	APIToken   string
	Model      string
	BaseURL    string
	Dimensions int
	MaxTokens  int
	Timeout    time.Duration
}

// HuggingFaceProvider embeds text with a sentence-transformers model through the
// feature-extraction pipeline of the Hugging Face inference API.
type HuggingFaceProvider struct {
	config HuggingFaceConfig
	client *http.Client
}

var _ Embedder = (*HuggingFaceProvider)(nil)

// NewHuggingFaceProvider creates a Hugging Face embedder. Zero fields select defaults.
func NewHuggingFaceProvider(cfg HuggingFaceConfig) *HuggingFaceProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultHuggingFaceModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHuggingFaceURL
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
	return &HuggingFaceProvider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Embed returns the sentence embedding of the truncated text.
func (p *HuggingFaceProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(hfEmbedRequest{
		Inputs:  TruncateTokens(text, p.config.MaxTokens),
		Options: hfEmbedOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, domain.NewEmbeddingError(p.config.Model, "marshaling request", err)
	}

	var headers map[string]string
	if p.config.APIToken != "" {
		headers = map[string]string{"Authorization": "Bearer " + p.config.APIToken}
	}

	var raw json.RawMessage
	url := p.config.BaseURL + "/pipeline/feature-extraction/" + p.config.Model
	if err := postJSON(ctx, p.client, url, body, headers, &raw); err != nil {
		return nil, domain.NewEmbeddingError(p.config.Model, "huggingface request failed", err)
	}

	vec, err := decodeFeatures(raw)
	if err != nil {
		return nil, domain.NewEmbeddingError(p.config.Model, "decoding features", err)
	}
	if len(vec) != p.config.Dimensions {
		return nil, domain.NewEmbeddingError(p.config.Model,
			fmt.Sprintf("unexpected embedding dimensions: got %d, want %d", len(vec), p.config.Dimensions), nil)
	}
	return vec, nil
}

// ModelName returns the configured model.
func (p *HuggingFaceProvider) ModelName() string {
	return p.config.Model
}

// Dimensions returns the configured vector length.
func (p *HuggingFaceProvider) Dimensions() int {
	return p.config.Dimensions
}

type hfEmbedRequest struct {
	Inputs  string         `json:"inputs"`
	Options hfEmbedOptions `json:"options"`
}

type hfEmbedOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// decodeFeatures accepts a pooled sentence vector, or one row per token which is
// mean-pooled into a single vector.
func decodeFeatures(raw json.RawMessage) ([]float32, error) {
	var pooled []float32
	if err := json.Unmarshal(raw, &pooled); err == nil {
		return pooled, nil
	}

	var rows [][]float32
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("unexpected feature shape: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty feature matrix")
	}

	mean := make([]float32, len(rows[0]))
	for _, row := range rows {
		if len(row) != len(mean) {
			return nil, fmt.Errorf("ragged feature matrix")
		}
		for i, v := range row {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float32(len(rows))
	}
	return mean, nil
}
