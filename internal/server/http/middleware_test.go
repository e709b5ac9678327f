package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/observability"
)

func TestCorrelationIDMiddleware_UsesExistingHeader(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := observability.CorrelationIDFromContext(r.Context())
		if cid != "test-correlation-123" {
			t.Errorf("expected correlation ID test-correlation-123, got %s", cid)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Correlation-ID", "test-correlation-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Correlation-ID") != "test-correlation-123" {
		t.Errorf("expected X-Correlation-ID header to be set")
	}
}

func TestCorrelationIDMiddleware_FallsBackToRequestID(t *testing.T) {
	handler := middleware.RequestID(correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := observability.CorrelationIDFromContext(r.Context()), middleware.GetReqID(r.Context()); got != want {
			t.Errorf("expected correlation ID %q, got %q", want, got)
		}
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))
	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected X-Correlation-ID header to be set")
	}
}

func TestCorrelationIDMiddleware_GeneratesIfMissing(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := observability.CorrelationIDFromContext(r.Context())
		if cid == "" {
			t.Error("expected non-empty correlation ID")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if len(rr.Header().Get("X-Correlation-ID")) != 36 {
		t.Errorf("expected a UUID correlation ID, got %q", rr.Header().Get("X-Correlation-ID"))
	}
}

func TestRequestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := requestLoggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/query_papers/", nil))

	out := buf.String()
	for _, want := range []string{`"method":"POST"`, `"path":"/query_papers/"`, `"status":418`, `"message":"http request"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %s, got %s", want, out)
		}
	}
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	metrics := observability.NewMetricsWithRegistry("test", prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(metricsMiddleware(metrics))
	r.Post("/fetch_papers/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/fetch_papers/", nil))

	if got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/fetch_papers/", "502")); got != 1 {
		t.Errorf("expected 1 request recorded, got %v", got)
	}
}

func TestRequestTimeoutMiddleware(t *testing.T) {
	var deadlineSet bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadlineSet = r.Context().Deadline()
	})

	requestTimeoutMiddleware(0)(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if deadlineSet {
		t.Error("zero timeout must leave the request unbounded")
	}

	requestTimeoutMiddleware(time.Minute)(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !deadlineSet {
		t.Error("expected a request deadline")
	}
}

func TestJSONContentTypeMiddleware(t *testing.T) {
	handler := jsonContentTypeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected application/json, got %q", rr.Header().Get("Content-Type"))
	}
}
