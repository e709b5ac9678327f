// Package neo4jstore implements the paper store on a Neo4j graph database.
// Each paper is a (:Paper) node whose four properties form its identity.
package neo4jstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/store"
)

// Backend is the backend name used in errors and metrics.
const Backend = "neo4j"

const (
	mergePapersCypher = `UNWIND $papers AS p
MERGE (:Paper {title: p.title, summary: p.summary, link: p.link, year: p.year})`

	allPapersCypher = `MATCH (p:Paper)
RETURN p.title AS title, p.summary AS summary, p.link AS link, p.year AS year`
)

// Opener opens driver-backed stores.
type Opener struct {
	database string
	timeout  time.Duration
	logger   zerolog.Logger
}

var _ store.Opener = (*Opener)(nil)

// NewOpener creates an Opener. database may be empty to use the server default;
// timeout bounds connecting and every store operation.
func NewOpener(database string, timeout time.Duration, logger zerolog.Logger) *Opener {
	return &Opener{
		database: database,
		timeout:  timeout,
		logger:   logger.With().Str("component", "neo4jstore").Logger(),
	}
}

// Backend returns "neo4j".
func (o *Opener) Backend() string {
	return Backend
}

// Open connects with basic auth and verifies connectivity. The driver is closed
// again if verification fails.
func (o *Opener) Open(ctx context.Context, creds store.Credentials) (store.PaperStore, error) {
	if creds.URI == "" {
		return nil, domain.NewStoreError(Backend, "open", "missing URI", nil)
	}

	driver, err := neo4j.NewDriverWithContext(creds.URI,
		neo4j.BasicAuth(creds.Username, creds.Password, ""),
		func(c *neo4j.Config) {
			if o.timeout > 0 {
				c.SocketConnectTimeout = o.timeout
				c.ConnectionAcquisitionTimeout = o.timeout
			}
		})
	if err != nil {
		return nil, domain.NewStoreError(Backend, "open", "creating driver", err)
	}

	verifyCtx, cancel := store.OperationContext(ctx, o.timeout)
	defer cancel()

	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		if closeErr := driver.Close(ctx); closeErr != nil {
			o.logger.Warn().Err(closeErr).Msg("closing driver after failed connectivity check")
		}
		return nil, domain.NewStoreError(Backend, "open", "verifying connectivity", err)
	}

	return &Store{
		driver:   driver,
		database: o.database,
		timeout:  o.timeout,
		logger:   o.logger,
	}, nil
}

// Store is a PaperStore backed by one driver instance.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
	logger   zerolog.Logger
}

// Upsert merges every paper in a single write transaction.
func (s *Store) Upsert(ctx context.Context, papers []domain.Paper) error {
	if err := store.ValidateBatch(Backend, papers); err != nil {
		return err
	}
	if len(papers) == 0 {
		return nil
	}

	opCtx, cancel := store.OperationContext(ctx, s.timeout)
	defer cancel()

	session := s.driver.NewSession(opCtx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer s.closeSession(ctx, session)

	params := map[string]any{"papers": paperParams(papers)}
	_, err := session.ExecuteWrite(opCtx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(opCtx, mergePapersCypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(opCtx)
	})
	if err != nil {
		return domain.NewStoreError(Backend, "upsert", fmt.Sprintf("merging %d papers", len(papers)), err)
	}
	return nil
}

// All reads every Paper node. Nodes with missing or mistyped properties are skipped.
func (s *Store) All(ctx context.Context) ([]domain.Paper, error) {
	opCtx, cancel := store.OperationContext(ctx, s.timeout)
	defer cancel()

	session := s.driver.NewSession(opCtx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer s.closeSession(ctx, session)

	records, err := session.ExecuteRead(opCtx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(opCtx, allPapersCypher, nil)
		if err != nil {
			return nil, err
		}
		return result.Collect(opCtx)
	})
	if err != nil {
		return nil, domain.NewStoreError(Backend, "all", "reading papers", err)
	}

	collected, _ := records.([]*neo4j.Record)
	papers := make([]domain.Paper, 0, len(collected))
	for _, record := range collected {
		paper, err := decodeRecord(record)
		if err != nil {
			s.logger.Warn().Err(err).Msg("skipping malformed stored paper")
			continue
		}
		papers = append(papers, paper)
	}
	return store.KeepValid(s.logger, papers), nil
}

// Close closes the driver and its connection pool.
func (s *Store) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return domain.NewStoreError(Backend, "close", "closing driver", err)
	}
	return nil
}

func (s *Store) closeSession(ctx context.Context, session neo4j.SessionWithContext) {
	if err := session.Close(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("closing session")
	}
}

func paperParams(papers []domain.Paper) []map[string]any {
	params := make([]map[string]any, len(papers))
	for i, p := range papers {
		params[i] = map[string]any{
			"title":   p.Title,
			"summary": p.Text,
			"link":    p.Link,
			"year":    int64(p.Year),
		}
	}
	return params
}

// decodeRecord converts a row of title, summary, link and year. A null summary or
// link decodes as empty; title and year must be present with the right types.
func decodeRecord(record *neo4j.Record) (domain.Paper, error) {
	if record == nil {
		return domain.Paper{}, fmt.Errorf("nil record")
	}

	title, err := stringValue(record, "title", true)
	if err != nil {
		return domain.Paper{}, err
	}
	summary, err := stringValue(record, "summary", false)
	if err != nil {
		return domain.Paper{}, err
	}
	link, err := stringValue(record, "link", false)
	if err != nil {
		return domain.Paper{}, err
	}

	raw, ok := record.Get("year")
	if !ok || raw == nil {
		return domain.Paper{}, fmt.Errorf("missing year")
	}
	year, ok := raw.(int64)
	if !ok {
		return domain.Paper{}, fmt.Errorf("year has type %T", raw)
	}

	return domain.Paper{Title: title, Text: summary, Link: link, Year: int(year)}, nil
}

func stringValue(record *neo4j.Record, key string, required bool) (string, error) {
	raw, ok := record.Get(key)
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("missing %s", key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s has type %T", key, raw)
	}
	return s, nil
}
