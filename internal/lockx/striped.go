// Package lockx provides keyed critical sections backed by a fixed set of
// mutex stripes.
package lockx

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const DefaultStripes = 256

// Striped maps a key to one of n mutexes. Two keys may share a stripe, so a
// caller must never hold two stripes of the same Striped at once.
type Striped struct {
	stripes []sync.Mutex
}

func NewStriped(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

func (s *Striped) For(key string) *sync.Mutex {
	return &s.stripes[xxhash.Sum64String(key)%uint64(len(s.stripes))]
}

// Do runs fn while holding the stripe for key.
func (s *Striped) Do(key string, fn func() error) error {
	mu := s.For(key)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}
