// Package research orchestrates the research assistant flows: fetching papers
// into the store, and ranking stored papers against a query before generating
// ideas or a full report.
package research

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/llm"
	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/papersources"
	"github.com/helixir/research-assistant/internal/ranking"
	"github.com/helixir/research-assistant/internal/store"
)

// Ranker orders candidate papers by relevance to a query.
type Ranker interface {
	Rank(ctx context.Context, query string, candidates []domain.Paper, k int) ([]domain.ScoredPaper, error)
}

// Generator renders a template over a context and completes it.
type Generator interface {
	Generate(ctx context.Context, tmpl llm.Template, context, query string) (string, error)
}

// CachePurger drops memoized embeddings once the stored corpus changes.
type CachePurger interface {
	Purge()
}

// Config holds service defaults.
type Config struct {
	// Credentials are the configured store credentials. Request overrides are
	// merged over them field by field.
	Credentials store.Credentials
	// TopK is the number of papers returned when a request does not set one.
	TopK int
}

// QueryResult is the outcome of QueryPapers.
type QueryResult struct {
	RelevantPapers []domain.ScoredPaper
	ResearchIdeas  string
}

// Report is the outcome of Report: the ranked papers and one text per template.
type Report struct {
	RelevantPapers     []domain.ScoredPaper
	Answer             string
	ResearchIdeas      string
	ReviewSummary      string
	ImprovementPlan    string
	ResearchDirections string
}

// Service runs the research flows. Operations are sequential and every external
// call receives the caller's context.
type Service struct {
	fetcher   papersources.Fetcher
	opener    store.Opener
	ranker    Ranker
	generator Generator
	cache     CachePurger
	metrics   *observability.Metrics
	logger    zerolog.Logger
	cfg       Config
}

// NewService creates a Service. cache and metrics may be nil.
func NewService(
	fetcher papersources.Fetcher,
	opener store.Opener,
	ranker Ranker,
	generator Generator,
	cache CachePurger,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	cfg Config,
) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = ranking.DefaultTopK
	}
	return &Service{
		fetcher:   fetcher,
		opener:    opener,
		ranker:    ranker,
		generator: generator,
		cache:     cache,
		metrics:   metrics,
		logger:    observability.WithComponent(logger, "research"),
		cfg:       cfg,
	}
}

// FetchPapers fetches papers on topic published in or after minYear, writes them
// to the store and returns them. creds may be nil.
func (s *Service) FetchPapers(ctx context.Context, topic string, minYear int, creds *store.Credentials) ([]domain.Paper, error) {
	resolved, err := s.credentials(creds)
	if err != nil {
		return nil, err
	}

	logger := observability.WithFetchContext(observability.LoggerFromContext(ctx, s.logger), topic, minYear)

	start := time.Now()
	papers, err := s.fetcher.Fetch(ctx, topic, minYear)
	s.metrics.RecordFetch(len(papers), time.Since(start), err)
	if err != nil {
		logger.Warn().Err(err).Str("source", s.fetcher.Name()).Msg("catalog fetch failed")
		return nil, err
	}

	err = store.WithStore(ctx, s.opener, resolved, func(ps store.PaperStore) error {
		upsertErr := ps.Upsert(ctx, papers)
		s.metrics.RecordStoreOperation(s.opener.Backend(), "upsert", upsertErr)
		return upsertErr
	})
	if err != nil {
		storeLogger := observability.WithStoreContext(logger, s.opener.Backend(), "upsert")
		storeLogger.Warn().Err(err).Msg("storing papers failed")
		return nil, err
	}
	s.metrics.RecordPapersStored(len(papers))

	if s.cache != nil && len(papers) > 0 {
		s.cache.Purge()
	}

	logger.Info().
		Int("papers", len(papers)).
		Dur("duration", time.Since(start)).
		Msg("papers fetched and stored")

	return papers, nil
}

// QueryPapers ranks the stored papers against query and generates research ideas
// from the top k. A non-positive k uses the configured default. With no stored
// papers the result is empty and nothing is generated.
func (s *Service) QueryPapers(ctx context.Context, query string, k int, creds *store.Credentials) (*QueryResult, error) {
	ranked, ctxText, err := s.retrieve(ctx, query, k, creds)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return &QueryResult{RelevantPapers: ranked}, nil
	}

	ideas, err := s.generator.Generate(ctx, llm.TemplateIdeas, ctxText, query)
	if err != nil {
		return nil, err
	}

	return &QueryResult{RelevantPapers: ranked, ResearchIdeas: ideas}, nil
}

// Report ranks the stored papers against query and generates every template in
// order. The first generation failure aborts the report.
func (s *Service) Report(ctx context.Context, query string, k int, creds *store.Credentials) (*Report, error) {
	ranked, ctxText, err := s.retrieve(ctx, query, k, creds)
	if err != nil {
		return nil, err
	}

	report := &Report{RelevantPapers: ranked}
	if len(ranked) == 0 {
		return report, nil
	}

	sections := []struct {
		tmpl llm.Template
		dst  *string
	}{
		{llm.TemplateAnswer, &report.Answer},
		{llm.TemplateIdeas, &report.ResearchIdeas},
		{llm.TemplateReview, &report.ReviewSummary},
		{llm.TemplateImprovement, &report.ImprovementPlan},
		{llm.TemplateDirections, &report.ResearchDirections},
	}
	for _, sec := range sections {
		text, err := s.generator.Generate(ctx, sec.tmpl, ctxText, query)
		if err != nil {
			return nil, err
		}
		*sec.dst = text
	}

	return report, nil
}

// CheckStore opens and closes the configured store.
func (s *Service) CheckStore(ctx context.Context) error {
	resolved, err := s.credentials(nil)
	if err != nil {
		return err
	}
	return store.WithStore(ctx, s.opener, resolved, func(store.PaperStore) error { return nil })
}

// retrieve reads every stored paper, ranks them against query and synthesizes
// the context of the top k.
func (s *Service) retrieve(ctx context.Context, query string, k int, creds *store.Credentials) ([]domain.ScoredPaper, string, error) {
	if query == "" {
		return nil, "", domain.NewValidationError("user_query", "must not be empty")
	}
	resolved, err := s.credentials(creds)
	if err != nil {
		return nil, "", err
	}
	if k <= 0 {
		k = s.cfg.TopK
	}

	var papers []domain.Paper
	err = store.WithStore(ctx, s.opener, resolved, func(ps store.PaperStore) error {
		var allErr error
		papers, allErr = ps.All(ctx)
		s.metrics.RecordStoreOperation(s.opener.Backend(), "all", allErr)
		return allErr
	})
	if err != nil {
		storeLogger := observability.WithStoreContext(observability.LoggerFromContext(ctx, s.logger), s.opener.Backend(), "all")
		storeLogger.Warn().Err(err).Msg("reading papers failed")
		return nil, "", err
	}

	ranked, err := s.ranker.Rank(ctx, query, papers, k)
	if err != nil {
		return nil, "", err
	}

	ctxLogger := observability.LoggerFromContext(ctx, s.logger)
	ctxLogger.Debug().
		Int("candidates", len(papers)).
		Int("ranked", len(ranked)).
		Int("k", k).
		Msg("papers ranked")

	return ranked, ranking.Synthesize(ranked), nil
}

// credentials merges a request override over the configured credentials. The
// memory backend needs none; every other backend needs all three fields.
func (s *Service) credentials(override *store.Credentials) (store.Credentials, error) {
	creds := s.cfg.Credentials
	if override != nil {
		creds = override.Or(s.cfg.Credentials)
	}
	if s.opener.Backend() == store.BackendMemory {
		return creds, nil
	}

	var missing []error
	if creds.URI == "" {
		missing = append(missing, domain.NewConfigError("store.uri", "no store URI configured or supplied"))
	}
	if creds.Username == "" {
		missing = append(missing, domain.NewConfigError("store.username", "no store username configured or supplied"))
	}
	if creds.Password == "" {
		missing = append(missing, domain.NewConfigError("store.password", "no store password configured or supplied"))
	}
	if len(missing) > 0 {
		return store.Credentials{}, errors.Join(missing...)
	}
	return creds, nil
}
