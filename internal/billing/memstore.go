package billing

import (
	"context"
	"sort"
	"sync"

	"github.com/noah-isme/backend-inventory/internal/common"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	seq  map[Kind]int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document), seq: make(map[Kind]int64)}
}

func (m *MemoryStore) Create(_ context.Context, doc Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ID]; exists {
		return Document{}, ErrConflict
	}
	doc.Version = 1
	m.docs[doc.ID] = doc.Clone()
	return doc, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]Document, int, error) {
	m.mu.RLock()
	matched := make([]Document, 0, len(m.docs))
	for _, doc := range m.docs {
		if f.matches(doc) {
			matched = append(matched, doc.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	start, end := common.Window(f.Page, f.PerPage, len(matched))
	return matched[start:end], len(matched), nil
}

func (m *MemoryStore) Update(_ context.Context, doc Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.docs[doc.ID]
	if !ok {
		return Document{}, ErrNotFound
	}
	if stored.Version != doc.Version {
		return Document{}, ErrConflict
	}
	doc.Version++
	m.docs[doc.ID] = doc.Clone()
	return doc, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryStore) NextNumber(_ context.Context, kind Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[kind]++
	return m.seq[kind], nil
}
