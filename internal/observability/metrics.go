package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the research assistant service,
// grouped by subsystem: HTTP API, catalog fetches, paper store, embedding,
// ranking and generation.
type Metrics struct {
	// HTTPRequests counts API requests, labeled by route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by route.
	HTTPRequestDuration *prometheus.HistogramVec

	// PapersFetched counts catalog entries accepted after the year filter.
	PapersFetched prometheus.Counter

	// FetchErrors counts failed catalog fetches.
	FetchErrors prometheus.Counter

	// FetchDuration observes catalog request duration in seconds.
	FetchDuration prometheus.Histogram

	// PapersStored counts papers submitted to the store.
	PapersStored prometheus.Counter

	// StoreOperations counts store operations, labeled by backend, operation and status.
	StoreOperations *prometheus.CounterVec

	// EmbeddingDuration observes the duration of a single embedding call in seconds.
	EmbeddingDuration prometheus.Histogram

	// RankCandidates observes the number of candidates scored per query.
	RankCandidates prometheus.Histogram

	// GenerationDuration observes generation duration in seconds, labeled by template.
	GenerationDuration *prometheus.HistogramVec

	// GenerationErrors counts failed generations, labeled by template.
	GenerationErrors *prometheus.CounterVec
}

// NewMetrics creates metrics registered with the default Prometheus registry.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics registered with reg.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		}, []string{"route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"route"}),

		// Catalog
		PapersFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_fetched_total",
			Help:      "Total number of catalog entries accepted after the year filter",
		}),
		FetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Total number of failed catalog fetches",
		}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Catalog fetch duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),

		// Store
		PapersStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_stored_total",
			Help:      "Total number of papers submitted to the paper store",
		}),
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of paper store operations",
		}, []string{"backend", "operation", "status"}),

		// Embedding and ranking
		EmbeddingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Duration of a single embedding call in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		RankCandidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_candidates",
			Help:      "Number of candidate papers scored per query",
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		}),

		// Generation
		GenerationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Text generation duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"template"}),
		GenerationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_errors_total",
			Help:      "Total number of failed text generations",
		}, []string{"template"}),
	}
}

// RecordHTTPRequest records a completed API request.
func (m *Metrics) RecordHTTPRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordFetch records a catalog fetch. A non-nil err counts as a failure.
func (m *Metrics) RecordFetch(accepted int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(duration.Seconds())
	if err != nil {
		m.FetchErrors.Inc()
		return
	}
	m.PapersFetched.Add(float64(accepted))
}

// RecordStoreOperation records a store operation outcome.
func (m *Metrics) RecordStoreOperation(backend, operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.WithLabelValues(backend, operation, status).Inc()
}

// RecordPapersStored records papers submitted to the store in one batch.
func (m *Metrics) RecordPapersStored(count int) {
	if m == nil {
		return
	}
	m.PapersStored.Add(float64(count))
}

// RecordEmbedding records the duration of one embedding call.
func (m *Metrics) RecordEmbedding(duration time.Duration) {
	if m == nil {
		return
	}
	m.EmbeddingDuration.Observe(duration.Seconds())
}

// RecordRank records the size of a ranked candidate set.
func (m *Metrics) RecordRank(candidates int) {
	if m == nil {
		return
	}
	m.RankCandidates.Observe(float64(candidates))
}

// RecordGeneration records a generation call for a template.
func (m *Metrics) RecordGeneration(template string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(template).Observe(duration.Seconds())
	if err != nil {
		m.GenerationErrors.WithLabelValues(template).Inc()
	}
}
