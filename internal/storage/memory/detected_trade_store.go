package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

// DetectedTradeStore is an in-memory implementation of storage.DetectedTradeStore.
type DetectedTradeStore struct {
	mu          sync.RWMutex
	trades      map[string]*domain.DetectedTrade // key: id
	bySignature map[string]string                // signature -> id
}

// NewDetectedTradeStore creates a new in-memory detected trade store.
func NewDetectedTradeStore() *DetectedTradeStore {
	return &DetectedTradeStore{
		trades:      make(map[string]*domain.DetectedTrade),
		bySignature: make(map[string]string),
	}
}

// Insert adds a detected trade. Signatures are unique.
func (s *DetectedTradeStore) Insert(_ context.Context, t *domain.DetectedTrade) error {
	if t == nil || t.ID == "" || t.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySignature[t.Signature]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.trades[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	c := *t
	s.trades[t.ID] = &c
	s.bySignature[t.Signature] = t.ID
	return nil
}

// SetReplicated records the replication outcome.
func (s *DetectedTradeStore) SetReplicated(_ context.Context, id string, replicated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.Replicated = replicated
	return nil
}

// GetBySignature retrieves a trade by source signature.
func (s *DetectedTradeStore) GetBySignature(_ context.Context, signature string) (*domain.DetectedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySignature[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *s.trades[id]
	return &c, nil
}

// ListRecent returns up to limit trades, newest first.
func (s *DetectedTradeStore) ListRecent(_ context.Context, limit int) ([]*domain.DetectedTrade, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DetectedTrade, 0, len(s.trades))
	for _, t := range s.trades {
		c := *t
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DetectedAt != result[j].DetectedAt {
			return result[i].DetectedAt > result[j].DetectedAt
		}
		return result[i].Signature < result[j].Signature
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Compile-time interface check
var _ storage.DetectedTradeStore = (*DetectedTradeStore)(nil)
