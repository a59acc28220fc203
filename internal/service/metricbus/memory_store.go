package metricbus

import (
	"context"
	"sync"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]models.MetricSnapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]models.MetricSnapshot)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (models.MetricSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.items[key]
	if !ok {
		return models.MetricSnapshot{}, ErrUnknownMetric
	}
	return snap, nil
}

// CompareAndSet implements Store.
func (s *MemoryStore) CompareAndSet(_ context.Context, snap models.MetricSnapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.items[snap.Key]; ok && !snap.NewerThan(current) {
		return false, nil
	}
	s.items[snap.Key] = snap
	return true, nil
}
