//go:build integration

package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/research-assistant/internal/database"
	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/store"
)

func startPostgres(t *testing.T) store.Credentials {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("research_test"),
		postgres.WithUsername("research"),
		postgres.WithPassword("research"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(ctx, database.Config{DSN: dsn}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	migrator, err := database.NewMigrator(db, zerolog.Nop())
	require.NoError(t, err)
	defer migrator.Close()
	require.NoError(t, migrator.Up())

	return store.Credentials{URI: dsn}
}

func TestIntegration_MergeOnFullMatch(t *testing.T) {
	creds := startPostgres(t)
	opener := NewOpener(10*time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	x := domain.Paper{Title: "X", Text: "a", Link: "u", Year: 2024}
	changed := x
	changed.Text = "b"

	for _, batch := range [][]domain.Paper{{x}, {x}, {changed}} {
		err := store.WithStore(ctx, opener, creds, func(ps store.PaperStore) error {
			return ps.Upsert(ctx, batch)
		})
		require.NoError(t, err)
	}

	var all []domain.Paper
	err := store.WithStore(ctx, opener, creds, func(ps store.PaperStore) error {
		var err error
		all, err = ps.All(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Paper{x, changed}, all)
}

func TestIntegration_WrongPassword(t *testing.T) {
	creds := startPostgres(t)
	creds.Password = "wrong"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := NewOpener(5*time.Second, zerolog.Nop()).Open(ctx, creds)
	assert.ErrorIs(t, err, domain.ErrStore)
}
