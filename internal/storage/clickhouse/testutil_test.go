package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	runMigrations(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// runMigrations creates the snapshot table. Keep in sync with migrations/clickhouse.
func runMigrations(t *testing.T, conn *Conn) {
	t.Helper()

	err := conn.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS pipeline_snapshots (
			target_wallet       String,
			last_cycle_at       Int64,
			total_polls         Int64,
			signatures_fetched  Int64,
			failed_tx           Int64,
			parse_error         Int64,
			unknown_dex         Int64,
			no_swap_detected    Int64,
			direction_skipped   Int64,
			trades_detected     Int64,
			trades_replicated   Int64,
			trades_failed       Int64
		) ENGINE = ReplacingMergeTree()
		ORDER BY (target_wallet, last_cycle_at)
	`)
	require.NoError(t, err)
}
