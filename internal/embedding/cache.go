package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder memoizes another Embedder in an LRU keyed by model name and a
// digest of the truncated input.
type CachedEmbedder struct {
	next      Embedder
	maxTokens int
	cache     *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next with an LRU holding up to size vectors.
// maxTokens must match the truncation bound of next.
func NewCachedEmbedder(next Embedder, size, maxTokens int) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, maxTokens: maxTokens, cache: cache}, nil
}

// Embed returns a cached vector or computes and stores one. Callers must not
// modify the returned slice.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// ModelName returns the wrapped model's name.
func (c *CachedEmbedder) ModelName() string {
	return c.next.ModelName()
}

// Dimensions returns the wrapped model's vector length.
func (c *CachedEmbedder) Dimensions() int {
	return c.next.Dimensions()
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

// Purge drops every cached vector.
func (c *CachedEmbedder) Purge() {
	c.cache.Purge()
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(TruncateTokens(text, c.maxTokens)))
	return c.next.ModelName() + ":" + hex.EncodeToString(sum[:])
}
