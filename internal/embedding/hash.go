package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hupe1980/vecgo/distance"
)

// HashModelName identifies the feature-hashing embedder.
const HashModelName = "feature-hash-v1"

// HashEmbedder is a local embedder that hashes unigram and bigram features into a
// fixed number of signed buckets and L2-normalises the result. It needs no
// network and is fully deterministic.
type HashEmbedder struct {
	dimensions int
	maxTokens  int
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder creates a HashEmbedder. Non-positive arguments select the defaults.
func NewHashEmbedder(dimensions, maxTokens int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &HashEmbedder{dimensions: dimensions, maxTokens: maxTokens}
}

// Embed returns the hashed feature vector of text. Text without word tokens
// yields the zero vector.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dimensions)

	tokens := wordTokens(TruncateTokens(text, h.maxTokens))
	for i, tok := range tokens {
		h.add(vec, tok)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok)
		}
	}

	// Zero vectors are left as they are.
	distance.NormalizeL2InPlace(vec)
	return vec, nil
}

// ModelName returns HashModelName.
func (h *HashEmbedder) ModelName() string {
	return HashModelName
}

// Dimensions returns the vector length.
func (h *HashEmbedder) Dimensions() int {
	return h.dimensions
}

// add hashes feature into a bucket; the top bit of the hash picks the sign.
func (h *HashEmbedder) add(vec []float32, feature string) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	bucket := int(sum % uint64(h.dimensions))
	if sum>>63 == 1 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}

// wordTokens lower-cases text and splits it into runs of letters and digits.
func wordTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
