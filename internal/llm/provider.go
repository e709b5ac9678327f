package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 10 << 20

// Provider completes a prompt with a language model.
type Provider interface {
	// Complete returns the generated text for req.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Name returns the provider name.
	Name() string
}

// CompletionRequest is a single decoding request.
type CompletionRequest struct {
	// Prompt is the full, already-truncated model input.
	Prompt string
	// MaxNewTokens is the output budget.
	MaxNewTokens int
	// NumBeams is the beam width for providers that support beam search.
	NumBeams int
	// EarlyStop ends beam search once NumBeams candidates are complete.
	EarlyStop bool
}

// httpBackend is the transport shared by the HTTP providers: one JSON POST per
// attempt, with transient failures retried after a delay linear in the attempt.
type httpBackend struct {
	name       string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	parseError func(statusCode int, body []byte) *APIError
}

func newHTTPBackend(name string, timeout time.Duration, maxRetries int, retryDelay time.Duration) httpBackend {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return httpBackend{
		name: name,
		// A zero timeout leaves inference unbounded; the caller's context still applies.
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// post sends payload to endpoint and decodes a 200 response into out.
func (b *httpBackend) post(ctx context.Context, endpoint string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", b.name, err)
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			delay := b.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context cancelled during retry wait: %w", b.name, ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = b.send(ctx, endpoint, headers, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !isTransientError(lastErr) {
			return lastErr
		}
	}

	if b.maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s: exhausted %d retries: %w", b.name, b.maxRetries, lastErr)
}

func (b *httpBackend) send(ctx context.Context, endpoint string, headers map[string]string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", b.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: request failed: %w", b.name, ctx.Err())
		}
		return &APIError{
			Provider: b.name,
			Message:  fmt.Sprintf("request failed: %v", err),
			Type:     "network_error",
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &APIError{
			Provider: b.name,
			Message:  fmt.Sprintf("failed to read response body: %v", err),
			Type:     "network_error",
		}
	}

	if resp.StatusCode != http.StatusOK {
		if b.parseError != nil {
			return b.parseError(resp.StatusCode, respBody)
		}
		return &APIError{Provider: b.name, StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: failed to unmarshal response: %w", b.name, err)
	}
	return nil
}
