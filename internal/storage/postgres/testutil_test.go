package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies the schema.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn, 4)
	require.NoError(t, err, "failed to create pool")

	applySchema(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}

// applySchema creates the store tables. Keep in sync with migrations/postgres.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			signature TEXT NOT NULL DEFAULT '',
			wallet_id TEXT NOT NULL,
			wallet_public_key TEXT NOT NULL,
			token_mint TEXT NOT NULL,
			direction TEXT NOT NULL,
			amount_sol DOUBLE PRECISION NOT NULL,
			amount_token BIGINT,
			venue TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			bot_mode TEXT NOT NULL,
			round INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS detected_trades (
			id TEXT PRIMARY KEY,
			signature TEXT NOT NULL UNIQUE,
			target_wallet TEXT NOT NULL,
			token_mint TEXT NOT NULL,
			direction TEXT NOT NULL,
			amount_sol DOUBLE PRECISION NOT NULL,
			venue TEXT NOT NULL,
			replicated BOOLEAN NOT NULL DEFAULT FALSE,
			detected_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS monitor_cursors (
			wallet TEXT PRIMARY KEY,
			signature TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err, "failed to apply schema")
	}
}
