package storage

import (
	"context"

	"solana-swap-bot/internal/domain"
)

// TransactionStore provides access to the swap audit log.
type TransactionStore interface {
	// Insert adds a new pending record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.TransactionRecord) error

	// UpdateStatus applies a terminal update and returns the updated record.
	// Returns ErrNotFound if id does not exist and ErrAlreadyFinal if the
	// record already reached a terminal status.
	UpdateStatus(ctx context.Context, id string, u domain.TxStatusUpdate) (*domain.TransactionRecord, error)

	// GetByID retrieves a record. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error)

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.TransactionRecord, error)

	// Clear deletes all records and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
}

// DetectedTradeStore provides access to trades detected on the copy-trade target.
type DetectedTradeStore interface {
	// Insert adds a detected trade. Returns ErrDuplicateKey if the signature exists.
	Insert(ctx context.Context, t *domain.DetectedTrade) error

	// SetReplicated records the replication outcome. Returns ErrNotFound if id does not exist.
	SetReplicated(ctx context.Context, id string, replicated bool) error

	// GetBySignature retrieves a trade by source signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.DetectedTrade, error)

	// ListRecent returns up to limit trades, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.DetectedTrade, error)
}

// CursorStore persists the newest processed signature per monitored wallet.
type CursorStore interface {
	// GetCursor returns the cursor for wallet. Returns ErrNotFound if none is stored.
	GetCursor(ctx context.Context, wallet string) (string, error)

	// SetCursor stores the cursor for wallet, replacing any previous value.
	SetCursor(ctx context.Context, wallet, signature string) error
}

// PipelineSnapshotStore provides access to the funnel counter time series.
type PipelineSnapshotStore interface {
	// InsertSnapshot appends a snapshot keyed by (target_wallet, last_cycle_at).
	InsertSnapshot(ctx context.Context, s *domain.PipelineSnapshot) error

	// GetByTimeRange retrieves snapshots for wallet with LastCycleAt in [start, end], ordered ASC.
	GetByTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.PipelineSnapshot, error)
}
