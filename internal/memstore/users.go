package memstore

import (
	"context"

	"github.com/ariefcatur/go-shop-core/internal/users"
)

type Users struct {
	t *table[users.User]
}

var _ users.Store = (*Users)(nil)

func NewUsers() *Users { return &Users{t: newTable[users.User](nil)} }

func (s *Users) FindUserByID(_ context.Context, id string) (*users.User, error) {
	s.t.mu.RLock()
	defer s.t.mu.RUnlock()
	u, _ := s.t.get(id)
	return u, nil
}

func (s *Users) Put(_ context.Context, u users.User) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	s.t.rows[u.ID] = u
	return nil
}
