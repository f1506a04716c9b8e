// Package memstore is the in-process backend: product, order and user tables
// kept in maps behind a RWMutex, with their secondary indexes updated under
// the same lock as the rows they point at.
package memstore

import (
	"sort"
	"sync"
)

// table is a keyed row map. clone is applied on the way in and out so callers
// never share memory with stored rows.
type table[T any] struct {
	mu    sync.RWMutex
	rows  map[string]T
	clone func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &table[T]{rows: make(map[string]T), clone: clone}
}

func (t *table[T]) get(id string) (*T, bool) {
	v, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	c := t.clone(v)
	return &c, true
}

// scan visits rows in key order so results are deterministic.
func (t *table[T]) scan(fn func(T) bool) {
	t.mu.RLock()
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snapshot := make([]T, 0, len(keys))
	for _, k := range keys {
		snapshot = append(snapshot, t.clone(t.rows[k]))
	}
	t.mu.RUnlock()

	for _, v := range snapshot {
		if !fn(v) {
			return
		}
	}
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
