package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

var transactionColumns = []string{
	"id", "signature", "wallet_id", "wallet_public_key", "token_mint",
	"direction", "amount_sol", "amount_token", "venue", "status",
	"error", "bot_mode", "round", "created_at",
}

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new pending record. Returns ErrDuplicateKey if id exists.
func (s *TransactionStore) Insert(ctx context.Context, r *domain.TransactionRecord) (err error) {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}
	defer track("transactions_insert")(&err)

	q := psql.Insert("transactions").
		Columns(transactionColumns...).
		Values(
			r.ID, r.Signature, r.WalletID, r.WalletPublicKey, r.TokenMint,
			string(r.Direction), r.AmountSOL, toNullInt64(r.AmountToken), r.Venue, string(r.Status),
			r.Error, string(r.BotMode), r.Round, r.CreatedAt,
		)

	if _, err = s.pool.execBuilt(ctx, q); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// UpdateStatus applies a terminal update to a pending record in one statement.
func (s *TransactionStore) UpdateStatus(ctx context.Context, id string, u domain.TxStatusUpdate) (_ *domain.TransactionRecord, err error) {
	if !u.Status.IsTerminal() {
		return nil, storage.ErrInvalidInput
	}
	defer track("transactions_update_status")(&err)

	q := psql.Update("transactions").
		Set("status", string(u.Status)).
		Set("error", u.Error).
		Where(sq.Eq{"id": id, "status": string(domain.TxStatusPending)})
	if u.Signature != "" {
		q = q.Set("signature", u.Signature)
	}
	if u.AmountToken != nil {
		q = q.Set("amount_token", toNullInt64(u.AmountToken))
	}
	q = q.Suffix("RETURNING " + strings.Join(transactionColumns, ", "))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	r, err := scanTransaction(s.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return r, nil
	}
	if !isNotFoundError(err) {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}

	// No pending row matched: distinguish a missing id from a finished record.
	if _, getErr := s.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, storage.ErrAlreadyFinal
}

// GetByID retrieves a record. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	query, args, err := psql.Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	r, err := scanTransaction(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return r, nil
}

// ListRecent returns up to limit records, newest first.
func (s *TransactionStore) ListRecent(ctx context.Context, limit int) (_ []*domain.TransactionRecord, err error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	defer track("transactions_list_recent")(&err)

	query, args, err := psql.Select(transactionColumns...).
		From("transactions").
		OrderBy("created_at DESC", "seq DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransactionRecord
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Clear deletes all records.
func (s *TransactionStore) Clear(ctx context.Context) (int64, error) {
	n, err := s.pool.execBuilt(ctx, psql.Delete("transactions"))
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	var (
		r           domain.TransactionRecord
		direction   string
		status      string
		botMode     string
		amountToken *int64
	)
	err := row.Scan(
		&r.ID, &r.Signature, &r.WalletID, &r.WalletPublicKey, &r.TokenMint,
		&direction, &r.AmountSOL, &amountToken, &r.Venue, &status,
		&r.Error, &botMode, &r.Round, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Direction = domain.Direction(direction)
	r.Status = domain.TxStatus(status)
	r.BotMode = domain.BotMode(botMode)
	if amountToken != nil {
		v := uint64(*amountToken)
		r.AmountToken = &v
	}
	return &r, nil
}

// toNullInt64 maps an optional raw token amount to a BIGINT parameter.
func toNullInt64(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

