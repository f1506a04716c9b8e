package memstore

import (
	"context"

	"github.com/ariefcatur/go-shop-core/internal/inventory"
)

// Products keeps the SKU index next to the rows.
type Products struct {
	t     *table[inventory.Product]
	bySKU map[string]string
}

var _ inventory.ProductStore = (*Products)(nil)

func NewProducts() *Products {
	return &Products{t: newTable[inventory.Product](nil), bySKU: make(map[string]string)}
}

func (s *Products) Get(_ context.Context, id string) (*inventory.Product, error) {
	s.t.mu.RLock()
	defer s.t.mu.RUnlock()
	p, _ := s.t.get(id)
	return p, nil
}

func (s *Products) GetBySKU(_ context.Context, sku string) (*inventory.Product, error) {
	s.t.mu.RLock()
	defer s.t.mu.RUnlock()
	id, ok := s.bySKU[sku]
	if !ok {
		return nil, nil
	}
	p, _ := s.t.get(id)
	return p, nil
}

// Put inserts or replaces a product. A SKU already owned by another product
// is rejected with DUPLICATE_SKU.
func (s *Products) Put(_ context.Context, p inventory.Product) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if owner, ok := s.bySKU[p.SKU]; ok && owner != p.ID {
		return inventory.ErrDuplicateSKU(p.SKU)
	}
	if old, ok := s.t.rows[p.ID]; ok && old.SKU != p.SKU {
		delete(s.bySKU, old.SKU)
	}
	s.t.rows[p.ID] = p
	s.bySKU[p.SKU] = p.ID
	return nil
}

func (s *Products) Delete(_ context.Context, id string) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if old, ok := s.t.rows[id]; ok {
		delete(s.bySKU, old.SKU)
		delete(s.t.rows, id)
	}
	return nil
}

func (s *Products) Scan(_ context.Context, fn func(inventory.Product) bool) error {
	s.t.scan(fn)
	return nil
}

func (s *Products) Len() int { return s.t.len() }
