// Package store defines the paper store abstraction and its in-memory backend.
//
// A store is opened per logical operation and closed on every path:
//
//	ps, err := opener.Open(ctx, creds)
//	if err != nil {
//	    return err
//	}
//	defer ps.Close(ctx)
//
// WithStore wraps that pattern and reports the close error alongside the
// callback's error. Backends live in the neo4jstore and pgstore subpackages.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/domain"
)

// Credentials identify and authenticate against a store deployment.
type Credentials struct {
	URI      string `json:"uri"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Or returns c with every empty field taken from fallback.
func (c Credentials) Or(fallback Credentials) Credentials {
	if c.URI == "" {
		c.URI = fallback.URI
	}
	if c.Username == "" {
		c.Username = fallback.Username
	}
	if c.Password == "" {
		c.Password = fallback.Password
	}
	return c
}

// IsZero reports whether no field is set.
func (c Credentials) IsZero() bool {
	return c == Credentials{}
}

// String redacts the password so credentials can be logged.
func (c Credentials) String() string {
	password := ""
	if c.Password != "" {
		password = "***"
	}
	return fmt.Sprintf("{uri:%s username:%s password:%s}", c.URI, c.Username, password)
}

// PaperStore persists papers and returns them.
type PaperStore interface {
	// Upsert writes papers, merging on a full match of title, summary, link and year.
	// Every paper is validated before anything is written.
	Upsert(ctx context.Context, papers []domain.Paper) error

	// All returns every stored paper in store iteration order.
	All(ctx context.Context) ([]domain.Paper, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Opener opens a PaperStore for one logical operation.
type Opener interface {
	Open(ctx context.Context, creds Credentials) (PaperStore, error)
	Backend() string
}

// WithStore opens a store, runs fn and closes the store on every path.
// A close failure is joined with fn's error.
func WithStore(ctx context.Context, opener Opener, creds Credentials, fn func(PaperStore) error) (err error) {
	ps, err := opener.Open(ctx, creds)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ps.Close(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(ps)
}

// OperationContext bounds one store operation by timeout. A non-positive
// timeout leaves ctx unbounded.
func OperationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// ValidateBatch checks every paper and returns a StoreError wrapping the first
// ValidationError. Backends call it before writing.
func ValidateBatch(backend string, papers []domain.Paper) error {
	for i, p := range papers {
		if err := p.Validate(); err != nil {
			return domain.NewStoreError(backend, "upsert", fmt.Sprintf("paper %d rejected", i), err)
		}
	}
	return nil
}

// KeepValid drops records that fail Paper.Validate, logging each at warn level.
func KeepValid(logger zerolog.Logger, papers []domain.Paper) []domain.Paper {
	valid := papers[:0]
	for _, p := range papers {
		if err := p.Validate(); err != nil {
			logger.Warn().
				Err(err).
				Str("title", p.Title).
				Str("link", p.Link).
				Int("year", p.Year).
				Msg("skipping malformed stored paper")
			continue
		}
		valid = append(valid, p)
	}
	return valid
}
