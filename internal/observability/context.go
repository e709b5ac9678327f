package observability

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns base enriched with the correlation ID carried by ctx, if any.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	id := CorrelationIDFromContext(ctx)
	if id == "" {
		return base
	}
	return base.With().Str("correlation_id", id).Logger()
}
