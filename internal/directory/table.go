package directory

import (
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/backend-inventory/internal/common"
)

// Table is an in-memory keyed collection. Rows are stored and returned by value.
type Table[T any] struct {
	mu   sync.RWMutex
	rows map[string]T
	id   func(T) string
	name func(T) string
}

// NewTable builds a table keyed by id and searched/sorted by name.
func NewTable[T any](id, name func(T) string) *Table[T] {
	return &Table[T]{rows: make(map[string]T), id: id, name: name}
}

// Get returns the row stored under id.
func (t *Table[T]) Get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

// Put inserts or replaces a row.
func (t *Table[T]) Put(row T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[t.id(row)] = row
}

// Delete removes the row and reports whether it existed.
func (t *Table[T]) Delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// Find returns the first row matching pred in name order.
func (t *Table[T]) Find(pred func(T) bool) (T, bool) {
	for _, row := range t.sorted("") {
		if pred(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// Update applies fn to the stored row under the table lock.
func (t *Table[T]) Update(id string, fn func(*T) error) (T, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false, nil
	}
	if err := fn(&row); err != nil {
		return row, true, err
	}
	t.rows[id] = row
	return row, true, nil
}

// Insert stores row unless check rejects one of the existing rows. The check
// and the write happen under a single lock.
func (t *Table[T]) Insert(row T, check func(existing T) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if check != nil {
		for _, existing := range t.rows {
			if err := check(existing); err != nil {
				return err
			}
		}
	}
	t.rows[t.id(row)] = row
	return nil
}

// UpdateGuarded is Update with the remaining rows passed to fn, so
// constraints spanning rows are checked under the same lock as the write.
func (t *Table[T]) UpdateGuarded(id string, fn func(cur *T, others []T) error) (T, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false, nil
	}
	if err := fn(&row, t.othersLocked(id)); err != nil {
		return row, true, err
	}
	t.rows[id] = row
	return row, true, nil
}

// DeleteGuarded removes id unless check rejects it given the remaining rows.
func (t *Table[T]) DeleteGuarded(id string, check func(cur T, others []T) error) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return false, nil
	}
	if check != nil {
		if err := check(row, t.othersLocked(id)); err != nil {
			return true, err
		}
	}
	delete(t.rows, id)
	return true, nil
}

func (t *Table[T]) othersLocked(id string) []T {
	out := make([]T, 0, len(t.rows))
	for key, row := range t.rows {
		if key != id {
			out = append(out, row)
		}
	}
	return out
}

// List filters rows by a case-insensitive name substring and returns one page
// together with the total match count.
func (t *Table[T]) List(query string, page, perPage int) ([]T, int) {
	matches := t.sorted(query)
	start, end := common.Window(page, perPage, len(matches))
	out := make([]T, end-start)
	copy(out, matches[start:end])
	return out, len(matches)
}

// Len returns the number of stored rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

func (t *Table[T]) sorted(query string) []T {
	needle := strings.ToLower(strings.TrimSpace(query))
	t.mu.RLock()
	out := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if needle == "" || strings.Contains(strings.ToLower(t.name(row)), needle) {
			out = append(out, row)
		}
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(t.name(out[i])), strings.ToLower(t.name(out[j]))
		if ni != nj {
			return ni < nj
		}
		return t.id(out[i]) < t.id(out[j])
	})
	return out
}

