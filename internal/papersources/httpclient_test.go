package papersources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	t.Run("keeps custom config", func(t *testing.T) {
		cfg := HTTPClientConfig{
			Timeout:    15 * time.Second,
			RateLimit:  5,
			BurstSize:  3,
			MaxRetries: 2,
			RetryDelay: 500 * time.Millisecond,
			UserAgent:  "TestAgent/1.0",
		}

		client := NewHTTPClient(cfg)

		require.NotNil(t, client.client)
		require.NotNil(t, client.rateLimiter)
		assert.Equal(t, 15*time.Second, client.client.Timeout)
		assert.Equal(t, cfg, client.config)
	})

	t.Run("applies defaults without enabling retries", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{MaxRetries: -1})

		assert.Equal(t, 30*time.Second, client.client.Timeout)
		assert.Equal(t, DefaultUserAgent, client.config.UserAgent)
		assert.Equal(t, 0, client.config.MaxRetries)
		assert.Equal(t, time.Second, client.config.RetryDelay)
	})
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("sets User-Agent", func(t *testing.T) {
		var receivedUserAgent string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedUserAgent = r.Header.Get("User-Agent")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{UserAgent: "TestAgent/2.0"})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "TestAgent/2.0", receivedUserAgent)
	})

	t.Run("no retries by default", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries 5xx when enabled", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("returns final response after retries are exhausted", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("resends body on retry", func(t *testing.T) {
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(b))
			if len(bodies) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, strings.NewReader("payload"))
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, []string{"payload", "payload"}, bodies)
	})

	t.Run("context cancellation is returned as-is", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{MaxRetries: 3})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = client.Do(req)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHTTPClient_RetryDelay(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{RetryDelay: 2 * time.Second})

	tests := []struct {
		name       string
		retryAfter string
		expected   time.Duration
	}{
		{"no header", "", 2 * time.Second},
		{"seconds", "5", 5 * time.Second},
		{"zero seconds", "0", 2 * time.Second},
		{"garbage", "soon", 2 * time.Second},
		{"past date", "Mon, 02 Jan 2006 15:04:05 GMT", 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}
			assert.Equal(t, tt.expected, client.retryDelay(resp))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(http.StatusTooManyRequests))
	assert.True(t, shouldRetry(http.StatusInternalServerError))
	assert.True(t, shouldRetry(http.StatusServiceUnavailable))
	assert.False(t, shouldRetry(http.StatusOK))
	assert.False(t, shouldRetry(http.StatusNotFound))
}
