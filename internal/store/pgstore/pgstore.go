// Package pgstore implements the paper store on PostgreSQL. The papers table is
// created by the migrations in the database package.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/store"
)

// Backend is the backend name used in errors and metrics.
const Backend = "postgres"

const (
	insertPaperSQL = `
		INSERT INTO papers (fingerprint, title, summary, link, year)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint) DO NOTHING`

	selectPapersSQL = `SELECT title, summary, link, year FROM papers ORDER BY id`
)

// Conn is the subset of *pgx.Conn the store uses.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Conn = (*pgx.Conn)(nil)

// Opener opens one connection per store.
type Opener struct {
	timeout time.Duration
	logger  zerolog.Logger
}

var _ store.Opener = (*Opener)(nil)

// NewOpener creates an Opener. timeout bounds connecting and every store operation.
func NewOpener(timeout time.Duration, logger zerolog.Logger) *Opener {
	return &Opener{
		timeout: timeout,
		logger:  logger.With().Str("component", "pgstore").Logger(),
	}
}

// Backend returns "postgres".
func (o *Opener) Backend() string {
	return Backend
}

// Open parses creds.URI as a DSN, overrides user and password when set, connects
// and pings.
func (o *Opener) Open(ctx context.Context, creds store.Credentials) (store.PaperStore, error) {
	if creds.URI == "" {
		return nil, domain.NewStoreError(Backend, "open", "missing URI", nil)
	}

	cfg, err := pgx.ParseConfig(creds.URI)
	if err != nil {
		// The parse error can echo the DSN, password included.
		return nil, domain.NewStoreError(Backend, "open", "invalid connection URI", nil)
	}
	if creds.Username != "" {
		cfg.User = creds.Username
	}
	if creds.Password != "" {
		cfg.Password = creds.Password
	}
	if o.timeout > 0 {
		cfg.ConnectTimeout = o.timeout
	}

	openCtx, cancel := store.OperationContext(ctx, o.timeout)
	defer cancel()

	conn, err := pgx.ConnectConfig(openCtx, cfg)
	if err != nil {
		return nil, domain.NewStoreError(Backend, "open", "connecting", err)
	}
	if err := conn.Ping(openCtx); err != nil {
		if closeErr := conn.Close(ctx); closeErr != nil {
			o.logger.Warn().Err(closeErr).Msg("closing connection after failed ping")
		}
		return nil, domain.NewStoreError(Backend, "open", "ping", err)
	}

	return New(conn, o.timeout, o.logger), nil
}

// Store is a PaperStore over a single connection.
type Store struct {
	conn    Conn
	timeout time.Duration
	logger  zerolog.Logger
}

// New wraps an open connection. Each Upsert and All is bounded by timeout;
// zero leaves them bounded only by the caller's context.
func New(conn Conn, timeout time.Duration, logger zerolog.Logger) *Store {
	return &Store{conn: conn, timeout: timeout, logger: logger}
}

// Upsert inserts every paper in one transaction. Rows whose fingerprint already
// exists are left untouched.
func (s *Store) Upsert(ctx context.Context, papers []domain.Paper) (err error) {
	if err := store.ValidateBatch(Backend, papers); err != nil {
		return err
	}
	if len(papers) == 0 {
		return nil
	}

	opCtx, cancel := store.OperationContext(ctx, s.timeout)
	defer cancel()

	tx, err := s.conn.Begin(opCtx)
	if err != nil {
		return domain.NewStoreError(Backend, "upsert", "begin transaction", err)
	}
	defer func() {
		if err == nil {
			return
		}
		// opCtx may already be expired here.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			s.logger.Error().Err(rbErr).AnErr("original_error", err).Msg("failed to rollback transaction")
		}
	}()

	var inserted int64
	for _, p := range papers {
		var tag pgconn.CommandTag
		tag, err = tx.Exec(opCtx, insertPaperSQL, p.Fingerprint(), p.Title, p.Text, p.Link, p.Year)
		if err != nil {
			return domain.NewStoreError(Backend, "upsert", fmt.Sprintf("inserting %q", p.Title), err)
		}
		inserted += tag.RowsAffected()
	}

	if err = tx.Commit(opCtx); err != nil {
		return domain.NewStoreError(Backend, "upsert", "commit", err)
	}

	s.logger.Debug().
		Int("submitted", len(papers)).
		Int64("inserted", inserted).
		Msg("papers upserted")
	return nil
}

// All returns every row in insertion order, skipping rows that fail validation.
func (s *Store) All(ctx context.Context) ([]domain.Paper, error) {
	opCtx, cancel := store.OperationContext(ctx, s.timeout)
	defer cancel()

	rows, err := s.conn.Query(opCtx, selectPapersSQL)
	if err != nil {
		return nil, domain.NewStoreError(Backend, "all", "query", err)
	}
	defer rows.Close()

	papers := make([]domain.Paper, 0)
	for rows.Next() {
		var (
			p    domain.Paper
			year int32
		)
		if err := rows.Scan(&p.Title, &p.Text, &p.Link, &year); err != nil {
			return nil, domain.NewStoreError(Backend, "all", "scan", err)
		}
		p.Year = int(year)
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(Backend, "all", "iterating rows", err)
	}

	return store.KeepValid(s.logger, papers), nil
}

// Close closes the connection.
func (s *Store) Close(ctx context.Context) error {
	if err := s.conn.Close(ctx); err != nil {
		return domain.NewStoreError(Backend, "close", "closing connection", err)
	}
	return nil
}
