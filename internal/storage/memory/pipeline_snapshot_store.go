package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"solana-swap-bot/internal/domain"
	"solana-swap-bot/internal/storage"
)

// PipelineSnapshotStore is an in-memory implementation of storage.PipelineSnapshotStore.
type PipelineSnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.PipelineSnapshot // key: wallet:lastCycleAt
}

// NewPipelineSnapshotStore creates a new in-memory snapshot store.
func NewPipelineSnapshotStore() *PipelineSnapshotStore {
	return &PipelineSnapshotStore{
		snapshots: make(map[string]*domain.PipelineSnapshot),
	}
}

func snapshotKey(wallet string, ts int64) string {
	return wallet + ":" + strconv.FormatInt(ts, 10)
}

// InsertSnapshot appends a snapshot.
func (s *PipelineSnapshotStore) InsertSnapshot(_ context.Context, snap *domain.PipelineSnapshot) error {
	if snap == nil || snap.TargetWallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey(snap.TargetWallet, snap.LastCycleAt)
	if _, exists := s.snapshots[key]; exists {
		return storage.ErrDuplicateKey
	}

	c := *snap
	s.snapshots[key] = &c
	return nil
}

// GetByTimeRange retrieves snapshots for wallet in [start, end], ordered by LastCycleAt ASC.
func (s *PipelineSnapshotStore) GetByTimeRange(_ context.Context, wallet string, start, end int64) ([]*domain.PipelineSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PipelineSnapshot
	for _, snap := range s.snapshots {
		if snap.TargetWallet == wallet && snap.LastCycleAt >= start && snap.LastCycleAt <= end {
			c := *snap
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastCycleAt < result[j].LastCycleAt
	})
	return result, nil
}

// Compile-time interface check
var _ storage.PipelineSnapshotStore = (*PipelineSnapshotStore)(nil)
