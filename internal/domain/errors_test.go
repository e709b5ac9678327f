package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds_Is(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"fetch", NewFetchError("arxiv", 503, "unavailable", nil), ErrFetch},
		{"store", NewStoreError("neo4j", "open", "connect", cause), ErrStore},
		{"embedding", NewEmbeddingError("hash", "empty vector", nil), ErrEmbedding},
		{"generation", NewGenerationError("huggingface", "IDEAS", "model loading", cause), ErrGeneration},
		{"config", NewConfigError("store.password", "must be set"), ErrConfig},
		{"validation", NewValidationError("topic", "required"), ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestErrorKinds_PreserveCause(t *testing.T) {
	err := NewStoreError("postgres", "upsert", "write batch", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	wrapped := NewFetchError("arxiv", 0, "request failed", NewValidationError("topic", "required"))
	var vErr *ValidationError
	assert.True(t, errors.As(wrapped, &vErr))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "arxiv fetch error (status 500): boom", NewFetchError("arxiv", 500, "boom", nil).Error())
	assert.Equal(t, "arxiv fetch error: decode feed: EOF", NewFetchError("arxiv", 0, "decode feed", errors.New("EOF")).Error())
	assert.Equal(t, "neo4j store all: query: timeout", NewStoreError("neo4j", "all", "query", errors.New("timeout")).Error())
	assert.Equal(t, "generation (ollama, ANSWER): empty response", NewGenerationError("ollama", "ANSWER", "empty response", nil).Error())
	assert.Equal(t, "config error: store.uri: must be set", NewConfigError("store.uri", "must be set").Error())
}
