package orders

import (
	"context"
	"time"

	"github.com/ariefcatur/go-shop-core/internal/inventory"
	"github.com/ariefcatur/go-shop-core/internal/users"
)

// Store is the order table plus the user -> orders index. Get returns
// (nil, nil) when the order does not exist. ListByUser is newest first.
type Store interface {
	Get(ctx context.Context, id string) (*Order, error)
	Put(ctx context.Context, o Order) error
	Delete(ctx context.Context, id string) error
	Scan(ctx context.Context, fn func(Order) bool) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
}

// StatusSwapper is implemented by stores that can compare-and-set the
// status column natively. ok is false when the stored status was not from.
type StatusSwapper interface {
	SwapStatus(ctx context.Context, id string, from, to Status, at time.Time) (ok bool, err error)
}

type UserDirectory interface {
	FindUserByID(ctx context.Context, id string) (*users.User, error)
}

// Ledger is the slice of inventory.Ledger the lifecycle needs.
type Ledger interface {
	FindByID(ctx context.Context, id string) (*inventory.Product, error)
	Reserve(ctx context.Context, id string, qty int) (int, error)
	Release(ctx context.Context, id string, qty int) (int, error)
}

var _ Ledger = (*inventory.Ledger)(nil)
