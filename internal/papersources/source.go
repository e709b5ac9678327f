// Package papersources provides the catalog fetcher abstraction and the shared
// rate-limited HTTP client used by catalog implementations.
//
// Example usage:
//
//	client := papersources.NewHTTPClient(papersources.HTTPClientConfig{RateLimit: 1.0 / 3.0, BurstSize: 1})
//	fetcher := arxiv.NewWithHTTPClient(arxiv.Config{}, client)
//	papers, err := fetcher.Fetch(ctx, "transformers", 2023)
package papersources

import (
	"context"

	"github.com/helixir/research-assistant/internal/domain"
)

// Fetcher retrieves papers for a topic from an external catalog.
//
// Implementations return only papers published in or after minYear and fail with a
// *domain.FetchError when the catalog is unreachable or its response is malformed.
type Fetcher interface {
	Fetch(ctx context.Context, topic string, minYear int) ([]domain.Paper, error)

	// Name returns the catalog identifier used in logs and errors.
	Name() string
}
