package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Default values for the Ollama provider.
const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2"
)

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// OllamaConfig holds the parameters needed to create an Ollama provider.
type OllamaConfig struct {
	// Model is the model name (e.g., "llama3.2").
	Model string
	// BaseURL is the Ollama server URL (empty means default).
	BaseURL string
}

// OllamaProvider generates text with a local Ollama server. Ollama decodes greedily
// at temperature 0; the beam width is not forwarded.
type OllamaProvider struct {
	httpBackend
	model   string
	baseURL string
}

// NewOllamaProvider creates an Ollama provider.
func NewOllamaProvider(cfg OllamaConfig, timeout time.Duration, maxRetries int, retryDelay time.Duration) *OllamaProvider {
	p := &OllamaProvider{
		httpBackend: newHTTPBackend("ollama", timeout, maxRetries, retryDelay),
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
	}
	if p.model == "" {
		p.model = defaultOllamaModel
	}
	if p.baseURL == "" {
		p.baseURL = defaultOllamaBaseURL
	}
	p.parseError = parseOllamaAPIError
	return p
}

// Complete implements Provider.
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := ollamaGenerateRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  req.MaxNewTokens,
			Temperature: 0,
		},
	}

	var out ollamaGenerateResponse
	if err := p.post(ctx, p.baseURL+"/api/generate", nil, body, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Name implements Provider.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the configured model name.
func (p *OllamaProvider) Model() string {
	return p.model
}

func parseOllamaAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "ollama",
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	var errResp ollamaErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
	}
	return apiErr
}
