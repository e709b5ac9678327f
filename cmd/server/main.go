// Package main provides the entry point for the research assistant HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/config"
	"github.com/helixir/research-assistant/internal/embedding"
	"github.com/helixir/research-assistant/internal/llm"
	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/papersources/arxiv"
	"github.com/helixir/research-assistant/internal/ranking"
	"github.com/helixir/research-assistant/internal/research"
	httpserver "github.com/helixir/research-assistant/internal/server/http"
	"github.com/helixir/research-assistant/internal/store"
	"github.com/helixir/research-assistant/internal/store/neo4jstore"
	"github.com/helixir/research-assistant/internal/store/pgstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	baseLogger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger := observability.WithComponent(baseLogger, "server")
	logger.Info().Msg("research-assistant server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	fetcher := arxiv.New(arxiv.Config{
		BaseURL:    cfg.ArXiv.BaseURL,
		Timeout:    cfg.ArXiv.Timeout,
		RateLimit:  cfg.ArXiv.RateLimit,
		BurstSize:  cfg.ArXiv.Burst,
		MaxRetries: cfg.ArXiv.MaxRetries,
		MaxResults: cfg.ArXiv.MaxResults,
		UserAgent:  cfg.ArXiv.UserAgent,
	})

	opener, err := newOpener(cfg.Store, baseLogger)
	if err != nil {
		return err
	}

	embedder, err := embedding.New(embedding.FactoryConfig{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		Timeout:    cfg.Embedding.Timeout,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	var purger research.CachePurger
	if cached, ok := embedder.(*embedding.CachedEmbedder); ok {
		purger = cached
	}

	provider, err := llm.NewProvider(llm.FactoryConfig{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
		RetryDelay: cfg.LLM.RetryDelay,
	})
	if err != nil {
		return fmt.Errorf("create generation provider: %w", err)
	}
	generator := llm.NewGenerator(provider, llm.GeneratorConfig{
		MaxInputTokens: cfg.LLM.MaxInputTokens,
		NumBeams:       cfg.LLM.NumBeams,
	}, metrics, baseLogger)

	service := research.NewService(
		fetcher,
		opener,
		ranking.NewRanker(embedder, metrics),
		generator,
		purger,
		metrics,
		baseLogger,
		research.Config{
			Credentials: store.Credentials{
				URI:      cfg.Store.URI,
				Username: cfg.Store.Username,
				Password: cfg.Store.Password,
			},
			TopK: cfg.Ranking.TopK,
		},
	)

	logger.Info().
		Str("store_backend", opener.Backend()).
		Str("embedding_model", embedder.ModelName()).
		Str("llm_provider", provider.Name()).
		Msg("components initialized")

	httpCfg := httpserver.Config{
		Address:        cfg.Server.HTTPAddress(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    2 * time.Minute,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, service, metrics, baseLogger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress(),
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("research-assistant is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down research-assistant")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("research-assistant shutdown complete")
	return nil
}

// newOpener selects the paper store backend.
func newOpener(cfg config.StoreConfig, logger zerolog.Logger) (store.Opener, error) {
	switch cfg.Backend {
	case config.StoreBackendNeo4j:
		return neo4jstore.NewOpener(cfg.Database, cfg.Timeout, logger), nil
	case config.StoreBackendPostgres:
		return pgstore.NewOpener(cfg.Timeout, logger), nil
	case config.StoreBackendMemory:
		return store.NewMemoryOpener(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.Backend)
	}
}
