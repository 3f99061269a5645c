package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-bot/internal/storage"
)

func TestCursorStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool)
	ctx := context.Background()

	_, err := store.GetCursor(ctx, "target")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetCursor(ctx, "target", "sig-1"))
	require.NoError(t, store.SetCursor(ctx, "target", "sig-2"))

	got, err := store.GetCursor(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, "sig-2", got)
}
