package memory

import (
	"context"
	"errors"
	"testing"

	"solana-swap-bot/internal/storage"
)

func TestCursorStore_GetSet(t *testing.T) {
	store := NewCursorStore()
	ctx := context.Background()

	if _, err := store.GetCursor(ctx, "target"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := store.SetCursor(ctx, "target", "sig1"); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}
	if err := store.SetCursor(ctx, "target", "sig2"); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}

	got, err := store.GetCursor(ctx, "target")
	if err != nil {
		t.Fatalf("GetCursor failed: %v", err)
	}
	if got != "sig2" {
		t.Errorf("cursor = %s, want sig2", got)
	}

	if err := store.SetCursor(ctx, "", "sig"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
