package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

var detectedTradeColumns = []string{
	"id", "signature", "target_wallet", "token_mint", "direction",
	"amount_sol", "venue", "replicated", "detected_at",
}

// DetectedTradeStore implements storage.DetectedTradeStore using PostgreSQL.
type DetectedTradeStore struct {
	pool *Pool
}

// NewDetectedTradeStore creates a new DetectedTradeStore.
func NewDetectedTradeStore(pool *Pool) *DetectedTradeStore {
	return &DetectedTradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DetectedTradeStore = (*DetectedTradeStore)(nil)

// Insert adds a detected trade. Returns ErrDuplicateKey if id or signature exists.
func (s *DetectedTradeStore) Insert(ctx context.Context, t *domain.DetectedTrade) (err error) {
	if t == nil || t.ID == "" || t.Signature == "" {
		return storage.ErrInvalidInput
	}
	defer track("detected_trades_insert")(&err)

	q := psql.Insert("detected_trades").
		Columns(detectedTradeColumns...).
		Values(
			t.ID, t.Signature, t.TargetWallet, t.TokenMint, string(t.Direction),
			t.AmountSOL, t.Venue, t.Replicated, t.DetectedAt,
		)

	if _, err = s.pool.execBuilt(ctx, q); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert detected trade: %w", err)
	}
	return nil
}

// SetReplicated records the replication outcome.
func (s *DetectedTradeStore) SetReplicated(ctx context.Context, id string, replicated bool) error {
	n, err := s.pool.execBuilt(ctx, psql.Update("detected_trades").
		Set("replicated", replicated).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update detected trade: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetBySignature retrieves a trade by source signature.
func (s *DetectedTradeStore) GetBySignature(ctx context.Context, signature string) (*domain.DetectedTrade, error) {
	query, args, err := psql.Select(detectedTradeColumns...).
		From("detected_trades").
		Where(sq.Eq{"signature": signature}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	t, err := scanDetectedTrade(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get detected trade: %w", err)
	}
	return t, nil
}

// ListRecent returns up to limit trades, newest first.
func (s *DetectedTradeStore) ListRecent(ctx context.Context, limit int) ([]*domain.DetectedTrade, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query, args, err := psql.Select(detectedTradeColumns...).
		From("detected_trades").
		OrderBy("detected_at DESC", "signature ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query detected trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.DetectedTrade
	for rows.Next() {
		t, err := scanDetectedTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan detected trade: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanDetectedTrade(row pgx.Row) (*domain.DetectedTrade, error) {
	var (
		t         domain.DetectedTrade
		direction string
	)
	err := row.Scan(
		&t.ID, &t.Signature, &t.TargetWallet, &t.TokenMint, &direction,
		&t.AmountSOL, &t.Venue, &t.Replicated, &t.DetectedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Direction = domain.Direction(direction)
	return &t, nil
}
