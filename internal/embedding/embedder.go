// Package embedding maps text to fixed-length vectors for similarity ranking.
//
// Every Embedder truncates its input with TruncateTokens before embedding, so
// arbitrarily long abstracts are bounded. Failures are *domain.EmbeddingError.
package embedding

import (
	"context"
	"strings"
)

// DefaultMaxTokens matches the sequence window of all-MiniLM-L6-v2.
const DefaultMaxTokens = 256

// DefaultDimensions is the vector length of all-MiniLM-L6-v2.
const DefaultDimensions = 384

// Embedder generates embeddings from text. Implementations are deterministic for
// a fixed model and input and safe for concurrent use.
type Embedder interface {
	// Embed returns the embedding of text. Empty text is embedded, not rejected.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the vector length.
	Dimensions() int
}

// TruncateTokens keeps the first maxTokens whitespace-delimited tokens of text,
// joined by single spaces. A non-positive maxTokens only normalizes whitespace.
func TruncateTokens(text string, maxTokens int) string {
	fields := strings.Fields(text)
	if maxTokens > 0 && len(fields) > maxTokens {
		fields = fields[:maxTokens]
	}
	return strings.Join(fields, " ")
}
