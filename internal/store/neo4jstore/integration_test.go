//go:build integration

package neo4jstore

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/store"
)

const testPassword = "integration-password"

func startNeo4j(t *testing.T) store.Credentials {
	t.Helper()
	ctx := context.Background()

	container, err := tcneo4j.Run(ctx, "neo4j:5", tcneo4j.WithAdminPassword(testPassword))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.BoltUrl(ctx)
	require.NoError(t, err)

	return store.Credentials{URI: uri, Username: "neo4j", Password: testPassword}
}

func TestIntegration_UpsertAndAll(t *testing.T) {
	creds := startNeo4j(t)
	opener := NewOpener("", 10*time.Second, zerolog.Nop())

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
	assert.ElementsMatch(t, []domain.Paper{x, changed}, all)
}

func TestIntegration_WrongPassword(t *testing.T) {
	creds := startNeo4j(t)
	creds.Password = "wrong"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := NewOpener("", 10*time.Second, zerolog.Nop()).Open(ctx, creds)
	assert.ErrorIs(t, err, domain.ErrStore)
}
