package memory

import (
	"context"
	"errors"
	"testing"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

func pendingRecord(id string, createdAt int64) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:              id,
		WalletID:        "w1",
		WalletPublicKey: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		TokenMint:       "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr",
		Direction:       domain.DirectionBuy,
		AmountSOL:       0.5,
		Venue:           "jupiter",
		Status:          domain.TxStatusPending,
		BotMode:         domain.BotModeCopyTrade,
		CreatedAt:       createdAt,
	}
}

func TestTransactionStore_InsertAndGet(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, pendingRecord("tx1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "tx1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.TxStatusPending {
		t.Errorf("Status mismatch: got %s, want pending", got.Status)
	}
	if got.AmountToken != nil {
		t.Errorf("AmountToken should be nil before confirmation")
	}
}

func TestTransactionStore_DuplicateKey(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, pendingRecord("tx1", 1000)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, pendingRecord("tx1", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransactionStore_UpdateStatusOnce(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, pendingRecord("tx1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	out := uint64(34_277_831_558_568)
	updated, err := store.UpdateStatus(ctx, "tx1", domain.TxStatusUpdate{
		Status:      domain.TxStatusConfirmed,
		Signature:   "sig1",
		AmountToken: &out,
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != domain.TxStatusConfirmed || updated.Signature != "sig1" {
		t.Errorf("unexpected update: %+v", updated)
	}
	if updated.AmountToken == nil || *updated.AmountToken != out {
		t.Errorf("AmountToken mismatch: %v", updated.AmountToken)
	}

	msg := "late failure"
	_, err = store.UpdateStatus(ctx, "tx1", domain.TxStatusUpdate{Status: domain.TxStatusFailed, Error: &msg})
	if !errors.Is(err, storage.ErrAlreadyFinal) {
		t.Errorf("Expected ErrAlreadyFinal, got %v", err)
	}

	got, _ := store.GetByID(ctx, "tx1")
	if got.Status != domain.TxStatusConfirmed {
		t.Errorf("terminal status changed to %s", got.Status)
	}
}

func TestTransactionStore_UpdateStatusErrors(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	_, err := store.UpdateStatus(ctx, "missing", domain.TxStatusUpdate{Status: domain.TxStatusFailed})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	_ = store.Insert(ctx, pendingRecord("tx1", 1000))
	_, err = store.UpdateStatus(ctx, "tx1", domain.TxStatusUpdate{Status: domain.TxStatusPending})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTransactionStore_ListRecentNewestFirst(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	_ = store.Insert(ctx, pendingRecord("a", 1000))
	_ = store.Insert(ctx, pendingRecord("b", 3000))
	_ = store.Insert(ctx, pendingRecord("c", 2000))
	_ = store.Insert(ctx, pendingRecord("d", 3000))

	got, err := store.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}

	want := []string{"d", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestTransactionStore_Clear(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	_ = store.Insert(ctx, pendingRecord("a", 1000))
	_ = store.Insert(ctx, pendingRecord("b", 2000))

	n, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d, want 2", n)
	}

	got, _ := store.ListRecent(ctx, 10)
	if len(got) != 0 {
		t.Errorf("Expected empty store, got %d records", len(got))
	}
}

func TestTransactionStore_ReturnsCopies(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	_ = store.Insert(ctx, pendingRecord("tx1", 1000))

	got, _ := store.GetByID(ctx, "tx1")
	got.Status = domain.TxStatusFailed

	again, _ := store.GetByID(ctx, "tx1")
	if again.Status != domain.TxStatusPending {
		t.Errorf("store mutated through returned pointer")
	}
}
