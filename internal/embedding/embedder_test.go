package embedding

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateTokens(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxTokens int
		want      string
	}{
		{"empty", "", 5, ""},
		{"shorter than bound", "a b c", 5, "a b c"},
		{"collapses whitespace", "  a\n\tb   c ", 5, "a b c"},
		{"truncates", "one two three four", 2, "one two"},
		{"exact bound", "one two", 2, "one two"},
		{"non-positive bound only normalizes", "a  b", 0, "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateTokens(tt.text, tt.maxTokens))
		})
	}
}

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()
	h := NewHashEmbedder(0, 0)
	assert.Equal(t, DefaultDimensions, h.Dimensions())
	assert.Equal(t, HashModelName, h.ModelName())

	t.Run("deterministic and normalized", func(t *testing.T) {
		a, err := h.Embed(ctx, "Attention is all you need")
		require.NoError(t, err)
		b, err := h.Embed(ctx, "Attention is all you need")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, DefaultDimensions)
		assert.InDelta(t, 1.0, l2(a), 1e-5)
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		a, _ := h.Embed(ctx, "Attention, is ALL you need!")
		b, _ := h.Embed(ctx, "attention is all you need")
		assert.Equal(t, a, b)
	})

	t.Run("empty text yields zero vector", func(t *testing.T) {
		for _, text := range []string{"", "   ", "?!"} {
			v, err := h.Embed(ctx, text)
			require.NoError(t, err)
			assert.Len(t, v, DefaultDimensions)
			assert.Zero(t, l2(v))
		}
	})

	t.Run("input beyond the token bound is ignored", func(t *testing.T) {
		short := NewHashEmbedder(64, 3)
		a, _ := short.Embed(ctx, "alpha beta gamma")
		b, _ := short.Embed(ctx, "alpha beta gamma delta epsilon "+strings.Repeat("zeta ", 1000))
		assert.Equal(t, a, b)
	})

	t.Run("related texts score higher than unrelated", func(t *testing.T) {
		q, _ := h.Embed(ctx, "attention mechanisms in transformers")
		near, _ := h.Embed(ctx, "we study attention mechanisms in transformers for translation")
		far, _ := h.Embed(ctx, "protein folding with molecular dynamics")

		assert.Greater(t, dot(q, near), dot(q, far))
	})
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
