package similarity

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps the corpus in process.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	ids     map[string]struct{}
}

// NewMemoryStore creates an empty corpus.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// Query implements Store.
func (m *MemoryStore) Query(ctx context.Context, vector []float64, k int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return BruteForceSearch(vector, m.records, k), nil
}

// Upsert implements Store.
func (m *MemoryStore) Upsert(ctx context.Context, rec Record) error {
	if !rec.Label.Valid() {
		return fmt.Errorf("record %s: invalid label %q", rec.ID, rec.Label)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[rec.ID]; ok {
		return fmt.Errorf("record %s: %w", rec.ID, ErrDuplicate)
	}
	rec.Vector = append([]float64(nil), rec.Vector...)
	m.records = append(m.records, rec)
	m.ids[rec.ID] = struct{}{}
	return nil
}

// Count implements Store.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}
