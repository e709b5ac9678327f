// Package ranking scores stored papers against a query by cosine similarity and
// condenses the top results into a single context string.
package ranking

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/vecgo/distance"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/embedding"
	"github.com/helixir/research-assistant/internal/observability"
)

// DefaultTopK is the number of papers returned when the caller does not choose.
const DefaultTopK = 10

// Ranker orders candidate papers by similarity to a query.
type Ranker struct {
	embedder embedding.Embedder
	metrics  *observability.Metrics
}

// NewRanker creates a Ranker. metrics may be nil.
func NewRanker(embedder embedding.Embedder, metrics *observability.Metrics) *Ranker {
	return &Ranker{embedder: embedder, metrics: metrics}
}

// Rank embeds the query and every candidate's text, scores each candidate by
// cosine similarity and returns the k best in descending order. Ties keep
// candidate order. The result has length min(k, len(candidates)); a negative k
// counts as zero. The query is not embedded when there are no candidates.
func (r *Ranker) Rank(ctx context.Context, query string, candidates []domain.Paper, k int) ([]domain.ScoredPaper, error) {
	r.metrics.RecordRank(len(candidates))
	if len(candidates) == 0 || k <= 0 {
		return []domain.ScoredPaper{}, nil
	}

	queryVec, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored := make([]domain.ScoredPaper, len(candidates))
	for i, p := range candidates {
		vec, err := r.embed(ctx, p.Text)
		if err != nil {
			return nil, err
		}
		scored[i] = domain.NewScoredPaper(p, CosineSimilarity(queryVec, vec))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func (r *Ranker) embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewEmbeddingError(r.embedder.ModelName(), "context done", err)
	}
	start := time.Now()
	vec, err := r.embedder.Embed(ctx, text)
	r.metrics.RecordEmbedding(time.Since(start))
	if err != nil && !errors.Is(err, domain.ErrEmbedding) {
		return nil, domain.NewEmbeddingError(r.embedder.ModelName(), "embedding failed", err)
	}
	return vec, err
}

// CosineSimilarity returns dot(a,b)/sqrt(dot(a,a)*dot(b,b)), clamped to [-1, 1].
// It is 0 when either vector has zero norm or the result is NaN.
// Vectors of different lengths are compared over the shorter length.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	a, b = a[:n], b[:n]

	normA := float64(distance.Dot(a, a))
	normB := float64(distance.Dot(b, b))
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := float64(distance.Dot(a, b)) / math.Sqrt(normA*normB)
	switch {
	case math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}

// Synthesize joins the non-blank texts of ranked papers, in order, with single spaces.
func Synthesize(ranked []domain.ScoredPaper) string {
	parts := make([]string, 0, len(ranked))
	for _, p := range ranked {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, " ")
}
