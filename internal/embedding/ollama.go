package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/helixir/research-assistant/internal/domain"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultOllamaModel is the default embedding model.
	DefaultOllamaModel = "all-minilm"

	// DefaultTimeout is the timeout for embedding requests.
	DefaultTimeout = 30 * time.Second

	apiPathEmbeddings = "/api/embeddings"

	// maxErrorBody caps how much of an error response is quoted.
	maxErrorBody = 512
)

// OllamaProvider generates embeddings using the Ollama API.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimensions int
	maxTokens  int
	client     *http.Client
}

var _ Embedder = (*OllamaProvider)(nil)

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

// WithBaseURL sets the Ollama API base URL.
func WithBaseURL(url string) OllamaOption {
	return func(p *OllamaProvider) {
		p.baseURL = url
	}
}

// WithModel sets the embedding model.
func WithModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		p.model = model
	}
}

// WithDimensions sets the expected vector dimensions.
func WithDimensions(dims int) OllamaOption {
	return func(p *OllamaProvider) {
		p.dimensions = dims
	}
}

// WithMaxTokens sets the input truncation bound.
func WithMaxTokens(n int) OllamaOption {
	return func(p *OllamaProvider) {
		p.maxTokens = n
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) OllamaOption {
	return func(p *OllamaProvider) {
		p.client.Timeout = timeout
	}
}

// NewOllamaProvider creates a new Ollama embedding provider.
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL:    DefaultOllamaURL,
		model:      DefaultOllamaModel,
		dimensions: DefaultDimensions,
		maxTokens:  DefaultMaxTokens,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed generates an embedding for the truncated text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{
		Model:  p.model,
		Prompt: TruncateTokens(text, p.maxTokens),
	})
	if err != nil {
		return nil, domain.NewEmbeddingError(p.model, "marshaling request", err)
	}

	var result ollamaEmbedResponse
	if err := postJSON(ctx, p.client, p.baseURL+apiPathEmbeddings, body, nil, &result); err != nil {
		return nil, domain.NewEmbeddingError(p.model, "ollama request failed", err)
	}

	if len(result.Embedding) != p.dimensions {
		return nil, domain.NewEmbeddingError(p.model,
			fmt.Sprintf("unexpected embedding dimensions: got %d, want %d", len(result.Embedding), p.dimensions), nil)
	}
	return result.Embedding, nil
}

// ModelName returns the name of the embedding model.
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// postJSON sends body and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, formatErrorBody(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// formatErrorBody reads a bounded prefix of an error response for messages.
func formatErrorBody(body io.Reader) string {
	respBody, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(bytes.TrimSpace(respBody))
}
