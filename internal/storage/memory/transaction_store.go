package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu      sync.RWMutex
	records map[string]*domain.TransactionRecord
	order   map[string]int64 // insertion sequence, breaks CreatedAt ties
	seq     int64
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		records: make(map[string]*domain.TransactionRecord),
		order:   make(map[string]int64),
	}
}

// Insert adds a new pending record.
func (s *TransactionStore) Insert(_ context.Context, r *domain.TransactionRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.seq++
	s.records[r.ID] = copyRecord(r)
	s.order[r.ID] = s.seq
	return nil
}

// UpdateStatus applies a terminal update to a pending record.
func (s *TransactionStore) UpdateStatus(_ context.Context, id string, u domain.TxStatusUpdate) (*domain.TransactionRecord, error) {
	if !u.Status.IsTerminal() {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if r.Status.IsTerminal() {
		return nil, storage.ErrAlreadyFinal
	}

	updated := u.Apply(*r)
	if u.Error != nil {
		msg := *u.Error
		updated.Error = &msg
	}
	s.records[id] = &updated
	return copyRecord(&updated), nil
}

// GetByID retrieves a record.
func (s *TransactionStore) GetByID(_ context.Context, id string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRecord(r), nil
}

// ListRecent returns up to limit records, newest first.
func (s *TransactionStore) ListRecent(_ context.Context, limit int) ([]*domain.TransactionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TransactionRecord, 0, len(s.records))
	for _, r := range s.records {
		result = append(result, copyRecord(r))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return s.order[result[i].ID] > s.order[result[j].ID]
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Clear deletes all records.
func (s *TransactionStore) Clear(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.records))
	s.records = make(map[string]*domain.TransactionRecord)
	s.order = make(map[string]int64)
	return n, nil
}

func copyRecord(r *domain.TransactionRecord) *domain.TransactionRecord {
	c := *r
	if r.AmountToken != nil {
		v := *r.AmountToken
		c.AmountToken = &v
	}
	if r.Error != nil {
		msg := *r.Error
		c.Error = &msg
	}
	return &c
}

// Compile-time interface check
var _ storage.TransactionStore = (*TransactionStore)(nil)
