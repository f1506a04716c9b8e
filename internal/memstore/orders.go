package memstore

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-shop-core/internal/orders"
)

// Orders keeps a user -> order ids index next to the rows.
type Orders struct {
	t      *table[orders.Order]
	byUser map[string]map[string]struct{}
}

var _ orders.Store = (*Orders)(nil)

func NewOrders() *Orders {
	return &Orders{t: newTable(orders.Order.Clone), byUser: make(map[string]map[string]struct{})}
}

func (s *Orders) Get(_ context.Context, id string) (*orders.Order, error) {
	s.t.mu.RLock()
	defer s.t.mu.RUnlock()
	o, _ := s.t.get(id)
	return o, nil
}

func (s *Orders) Put(_ context.Context, o orders.Order) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if old, ok := s.t.rows[o.ID]; ok && old.UserID != o.UserID {
		s.unindex(old.UserID, o.ID)
	}
	s.t.rows[o.ID] = o.Clone()
	ids, ok := s.byUser[o.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[o.UserID] = ids
	}
	ids[o.ID] = struct{}{}
	return nil
}

func (s *Orders) Delete(_ context.Context, id string) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if old, ok := s.t.rows[id]; ok {
		s.unindex(old.UserID, id)
		delete(s.t.rows, id)
	}
	return nil
}

func (s *Orders) unindex(userID, id string) {
	ids := s.byUser[userID]
	delete(ids, id)
	if len(ids) == 0 {
		delete(s.byUser, userID)
	}
}

func (s *Orders) Scan(_ context.Context, fn func(orders.Order) bool) error {
	s.t.scan(fn)
	return nil
}

// ListByUser returns the user's orders newest first, at most limit of them
// (all when limit <= 0).
func (s *Orders) ListByUser(_ context.Context, userID string, limit int) ([]orders.Order, error) {
	s.t.mu.RLock()
	out := make([]orders.Order, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		out = append(out, s.t.rows[id].Clone())
	}
	s.t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
