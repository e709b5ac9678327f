package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Default values for the Hugging Face provider.
const (
	defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co"
	defaultHuggingFaceModel   = "t5-base"
)

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MaxNewTokens  int  `json:"max_new_tokens"`
	NumBeams      int  `json:"num_beams"`
	EarlyStopping bool `json:"early_stopping"`
	DoSample      bool `json:"do_sample"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type hfErrorResponse struct {
	Error string `json:"error"`
}

// HuggingFaceConfig holds the parameters needed to create a Hugging Face provider.
type HuggingFaceConfig struct {
	// APIToken is the optional inference API token.
	APIToken string
	// Model is the model identifier (e.g., "t5-base").
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// HuggingFaceProvider runs text-to-text models through the Hugging Face inference API
// with deterministic beam search.
type HuggingFaceProvider struct {
	httpBackend
	apiToken string
	model    string
	baseURL  string
}

// NewHuggingFaceProvider creates a Hugging Face provider.
func NewHuggingFaceProvider(cfg HuggingFaceConfig, timeout time.Duration, maxRetries int, retryDelay time.Duration) *HuggingFaceProvider {
	p := &HuggingFaceProvider{
		httpBackend: newHTTPBackend("huggingface", timeout, maxRetries, retryDelay),
		apiToken:    cfg.APIToken,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
	}
	if p.model == "" {
		p.model = defaultHuggingFaceModel
	}
	if p.baseURL == "" {
		p.baseURL = defaultHuggingFaceBaseURL
	}
	p.parseError = parseHuggingFaceAPIError
	return p
}

// Complete implements Provider.
func (p *HuggingFaceProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := hfRequest{
		Inputs: req.Prompt,
		Parameters: hfParameters{
			MaxNewTokens:  req.MaxNewTokens,
			NumBeams:      req.NumBeams,
			EarlyStopping: req.EarlyStop,
			DoSample:      false,
		},
		Options: hfOptions{WaitForModel: true},
	}

	headers := map[string]string{}
	if p.apiToken != "" {
		headers["Authorization"] = "Bearer " + p.apiToken
	}

	var out []hfGeneration
	endpoint := p.baseURL + "/models/" + p.model
	if err := p.post(ctx, endpoint, headers, body, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("huggingface: response contained no generations")
	}
	return out[0].GeneratedText, nil
}

// Name implements Provider.
func (p *HuggingFaceProvider) Name() string {
	return "huggingface"
}

// Model returns the configured model identifier.
func (p *HuggingFaceProvider) Model() string {
	return p.model
}

// parseHuggingFaceAPIError parses an inference API error from the response status code and body.
func parseHuggingFaceAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "huggingface",
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	var errResp hfErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
	}
	return apiErr
}
