package papersources

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket that paces requests to an external catalog.
// It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing ratePerSecond sustained requests with the
// given burst. A non-positive rate disables limiting.
//
// The arXiv API asks for at most one request every three seconds, which is
// NewRateLimiter(1.0/3.0, 1).
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
