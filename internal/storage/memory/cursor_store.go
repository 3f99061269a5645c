package memory

import (
	"context"
	"sync"

	"solana-swap-bot/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]string
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[string]string),
	}
}

// GetCursor returns the last processed signature for wallet.
func (s *CursorStore) GetCursor(_ context.Context, wallet string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, ok := s.cursors[wallet]
	if !ok {
		return "", storage.ErrNotFound
	}
	return sig, nil
}

// SetCursor saves the last processed signature for wallet.
func (s *CursorStore) SetCursor(_ context.Context, wallet, signature string) error {
	if wallet == "" || signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[wallet] = signature
	return nil
}

// Compile-time interface check
var _ storage.CursorStore = (*CursorStore)(nil)
