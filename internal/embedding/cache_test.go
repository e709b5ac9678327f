package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }
func (c *countingEmbedder) Dimensions() int   { return 1 }

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	next := &countingEmbedder{}
	cached, err := NewCachedEmbedder(next, 8, 4)
	require.NoError(t, err)

	assert.Equal(t, "counting", cached.ModelName())
	assert.Equal(t, 1, cached.Dimensions())

	first, err := cached.Embed(ctx, "a b c")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "a  b   c")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls, "whitespace variants share a key")
	assert.Equal(t, 1, cached.Len())

	_, _ = cached.Embed(ctx, "a b c d e f")
	_, _ = cached.Embed(ctx, "a b c d")
	assert.Equal(t, 2, next.calls, "text equal after truncation shares a key")

	cached.Purge()
	assert.Zero(t, cached.Len())
	_, _ = cached.Embed(ctx, "a b c")
	assert.Equal(t, 3, next.calls)
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	next := &countingEmbedder{err: errors.New("unavailable")}
	cached, err := NewCachedEmbedder(next, 4, 16)
	require.NoError(t, err)

	_, err = cached.Embed(context.Background(), "x")
	assert.Error(t, err)
	_, err = cached.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
	assert.Zero(t, cached.Len())
}

func TestNewCachedEmbedder_InvalidSize(t *testing.T) {
	_, err := NewCachedEmbedder(&countingEmbedder{}, 0, 16)
	assert.Error(t, err)
}
