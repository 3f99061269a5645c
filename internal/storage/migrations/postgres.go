package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-swap-bot/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded schema in lexical order.
// Every file uses IF NOT EXISTS, so reruns on an existing database are no-ops.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, f := range files {
		if _, err := pool.Exec(ctx, f.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.Name, err)
		}
		logrus.WithField("component", "migrations").Debugf("applied postgres migration %s", f.Name)
	}

	return nil
}
