package postgres

import (
	"context"
	"fmt"

	"solana-swap-bot/internal/storage"
)

// CursorStore is a PostgreSQL implementation of storage.CursorStore.
// One row per monitored wallet in monitor_cursors.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new PostgreSQL cursor store.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// GetCursor returns the last processed signature for wallet.
func (s *CursorStore) GetCursor(ctx context.Context, wallet string) (string, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT signature
		FROM monitor_cursors
		WHERE wallet = $1
	`, wallet)

	var sig string
	if err := row.Scan(&sig); err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get cursor: %w", err)
	}
	return sig, nil
}

// SetCursor saves the last processed signature for wallet.
// Uses upsert to handle initial insert and subsequent updates.
func (s *CursorStore) SetCursor(ctx context.Context, wallet, signature string) (err error) {
	if wallet == "" || signature == "" {
		return storage.ErrInvalidInput
	}
	defer track("monitor_cursors_upsert")(&err)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO monitor_cursors (wallet, signature, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (wallet) DO UPDATE
		SET signature = EXCLUDED.signature,
		    updated_at = NOW()
	`, wallet, signature)
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
