package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent entries in a fixed-size ring.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewMemoryStore returns a ring holding up to capacity entries (default 500).
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryStore{entries: make([]Entry, capacity)}
}

// Insert appends e, overwriting the oldest entry once the ring is full.
func (m *MemoryStore) Insert(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// List returns entries newest first, skipping offset and returning at most limit.
func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := m.next
	if m.full {
		total = len(m.entries)
	}
	out := make([]Entry, 0, limit)
	for i := offset; i < total && len(out) < limit; i++ {
		idx := (m.next - 1 - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, total, nil
}
