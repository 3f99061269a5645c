package clickhouse

import (
	"context"
	"fmt"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

// PipelineSnapshotStore implements storage.PipelineSnapshotStore using ClickHouse.
type PipelineSnapshotStore struct {
	conn *Conn
}

// NewPipelineSnapshotStore creates a new PipelineSnapshotStore.
func NewPipelineSnapshotStore(conn *Conn) *PipelineSnapshotStore {
	return &PipelineSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PipelineSnapshotStore = (*PipelineSnapshotStore)(nil)

// InsertSnapshot appends one snapshot. MergeTree does not enforce keys, so
// duplicates on (target_wallet, last_cycle_at) are checked before insert.
func (s *PipelineSnapshotStore) InsertSnapshot(ctx context.Context, snap *domain.PipelineSnapshot) error {
	if snap == nil || snap.TargetWallet == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, snap.TargetWallet, snap.LastCycleAt)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pipeline_snapshots (
			target_wallet, last_cycle_at, total_polls, signatures_fetched, failed_tx,
			parse_error, unknown_dex, no_swap_detected, direction_skipped,
			trades_detected, trades_replicated, trades_failed
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		snap.TargetWallet, snap.LastCycleAt, snap.TotalPolls, snap.SignaturesFetched, snap.FailedTx,
		snap.ParseError, snap.UnknownDex, snap.NoSwapDetected, snap.DirectionSkipped,
		snap.TradesDetected, snap.TradesReplicated, snap.TradesFailed,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves snapshots for wallet within [start, end] (inclusive), ordered ASC.
func (s *PipelineSnapshotStore) GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.PipelineSnapshot, error) {
	query := `
		SELECT target_wallet, last_cycle_at, total_polls, signatures_fetched, failed_tx,
			parse_error, unknown_dex, no_swap_detected, direction_skipped,
			trades_detected, trades_replicated, trades_failed
		FROM pipeline_snapshots FINAL
		WHERE target_wallet = ? AND last_cycle_at >= ? AND last_cycle_at <= ?
		ORDER BY last_cycle_at ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPipelineSnapshots(rows)
}

func (s *PipelineSnapshotStore) exists(ctx context.Context, wallet string, lastCycleAt int64) (bool, error) {
	query := `
		SELECT count(*) FROM pipeline_snapshots
		WHERE target_wallet = ? AND last_cycle_at = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, wallet, lastCycleAt).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanPipelineSnapshots(rows chRows) ([]*domain.PipelineSnapshot, error) {
	var snaps []*domain.PipelineSnapshot

	for rows.Next() {
		var p domain.PipelineSnapshot
		err := rows.Scan(
			&p.TargetWallet, &p.LastCycleAt, &p.TotalPolls, &p.SignaturesFetched, &p.FailedTx,
			&p.ParseError, &p.UnknownDex, &p.NoSwapDetected, &p.DirectionSkipped,
			&p.TradesDetected, &p.TradesReplicated, &p.TradesFailed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline snapshot row: %w", err)
		}
		snaps = append(snaps, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline snapshot rows: %w", err)
	}

	return snaps, nil
}
