package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

func newPending(id string, createdAt int64) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:              id,
		WalletID:        "w1",
		WalletPublicKey: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		TokenMint:       "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr",
		Direction:       domain.DirectionBuy,
		AmountSOL:       0.25,
		Venue:           "pumpfun",
		Status:          domain.TxStatusPending,
		BotMode:         domain.BotModeBundle,
		Round:           2,
		CreatedAt:       createdAt,
	}
}

func TestTransactionStore_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransactionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newPending("tx-1", 1000)))
	assert.ErrorIs(t, store.Insert(ctx, newPending("tx-1", 1000)), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, got.Status)
	assert.Nil(t, got.AmountToken)
	assert.Nil(t, got.Error)
	assert.Equal(t, 2, got.Round)

	updated, err := store.UpdateStatus(ctx, "tx-1", domain.TxStatusUpdate{
		Status:      domain.TxStatusConfirmed,
		Signature:   "5sig",
		AmountToken: ptr(uint64(34_277_831_558_568)),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusConfirmed, updated.Status)
	assert.Equal(t, "5sig", updated.Signature)
	require.NotNil(t, updated.AmountToken)
	assert.Equal(t, uint64(34_277_831_558_568), *updated.AmountToken)

	_, err = store.UpdateStatus(ctx, "tx-1", domain.TxStatusUpdate{
		Status: domain.TxStatusFailed,
		Error:  ptr("late"),
	})
	assert.ErrorIs(t, err, storage.ErrAlreadyFinal)

	_, err = store.UpdateStatus(ctx, "missing", domain.TxStatusUpdate{Status: domain.TxStatusFailed})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransactionStore_ListRecentAndClear(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransactionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newPending("a", 1000)))
	require.NoError(t, store.Insert(ctx, newPending("b", 3000)))
	require.NoError(t, store.Insert(ctx, newPending("c", 2000)))
	require.NoError(t, store.Insert(ctx, newPending("d", 3000)))

	got, err := store.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)

	n, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	got, err = store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
