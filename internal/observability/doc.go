// Package observability provides logging, metrics, and request context support for
// the research assistant service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info().Str("topic", topic).Msg("fetching papers")
//
// Handlers attach a correlation ID to the request context; LoggerFromContext
// returns a logger carrying it:
//
//	ctx = observability.WithCorrelationID(ctx, id)
//	log := observability.LoggerFromContext(ctx, logger)
//
// # Metrics
//
// NewMetrics registers collectors with the default Prometheus registry.
// NewMetricsWithRegistry takes an explicit registerer, which tests use to avoid
// duplicate registration. All Record methods are no-ops on a nil *Metrics.
//
//	metrics := observability.NewMetrics("research_assistant")
//	metrics.RecordPapersFetched(12)
//	metrics.RecordGeneration("IDEAS", 3*time.Second, nil)
//
// # Standard Fields
//
//   - correlation_id: request correlation identifier
//   - component: emitting component (server, fetcher, store, service)
//   - topic, min_year: catalog fetch parameters
//   - backend: paper store backend
//   - template: generation template name
package observability
