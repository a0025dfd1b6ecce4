package performance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Snapshot
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Snapshot), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Snapshot, error) {
	m.mu.RLock()
	s, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || expired(&s, m.now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = *s
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	now := m.now()
	out := make([]*Snapshot, 0, len(keys))
	for _, k := range keys {
		s := m.items[k]
		if !expired(&s, now) {
			out = append(out, &s)
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
