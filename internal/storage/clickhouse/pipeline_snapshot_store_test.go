package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

func TestPipelineSnapshotStore_InsertAndRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPipelineSnapshotStore(conn)
	ctx := context.Background()

	for _, ts := range []int64{1000, 2000, 3000} {
		err := store.InsertSnapshot(ctx, &domain.PipelineSnapshot{
			TargetWallet:      "target",
			TotalPolls:        ts / 1000,
			SignaturesFetched: 3,
			FailedTx:          1,
			TradesDetected:    1,
			TradesReplicated:  2,
			LastCycleAt:       ts,
		})
		require.NoError(t, err)
	}

	got, err := store.GetByTimeRange(ctx, "target", 1500, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].LastCycleAt)
	assert.Equal(t, int64(2), got[0].TotalPolls)
	assert.Equal(t, int64(3), got[0].SignaturesFetched)
	assert.Equal(t, int64(3000), got[1].LastCycleAt)
}

func TestPipelineSnapshotStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPipelineSnapshotStore(conn)
	ctx := context.Background()

	snap := &domain.PipelineSnapshot{TargetWallet: "target", LastCycleAt: 42}
	require.NoError(t, store.InsertSnapshot(ctx, snap))
	assert.ErrorIs(t, store.InsertSnapshot(ctx, snap), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.InsertSnapshot(ctx, nil), storage.ErrInvalidInput)
}
