package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-core/internal/apperr"
	"github.com/ariefcatur/go-shop-core/internal/inventory"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/users"
)

func TestProducts_SKUIndexFollowsRow(t *testing.T) {
	ctx := context.Background()
	s := NewProducts()

	require.NoError(t, s.Put(ctx, inventory.Product{ID: "p1", SKU: "SKU-1", Stock: 5}))

	got, err := s.GetBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ID)

	// re-keying the row moves the index entry
	require.NoError(t, s.Put(ctx, inventory.Product{ID: "p1", SKU: "SKU-2", Stock: 5}))
	got, _ = s.GetBySKU(ctx, "SKU-1")
	assert.Nil(t, got)
	got, _ = s.GetBySKU(ctx, "SKU-2")
	require.NotNil(t, got)

	require.NoError(t, s.Delete(ctx, "p1"))
	got, _ = s.GetBySKU(ctx, "SKU-2")
	assert.Nil(t, got)
	assert.Equal(t, 0, s.Len())
}

func TestProducts_RejectsSKUOwnedByAnotherProduct(t *testing.T) {
	ctx := context.Background()
	s := NewProducts()
	require.NoError(t, s.Put(ctx, inventory.Product{ID: "p1", SKU: "SKU-1"}))

	err := s.Put(ctx, inventory.Product{ID: "p2", SKU: "SKU-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "DUPLICATE_SKU", apperr.CodeOf(err))
}

func TestProducts_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewProducts()
	require.NoError(t, s.Put(ctx, inventory.Product{ID: "p1", SKU: "SKU-1", Stock: 5}))

	p, _ := s.Get(ctx, "p1")
	p.Stock = 0

	again, _ := s.Get(ctx, "p1")
	assert.Equal(t, 5, again.Stock)

	missing, err := s.Get(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProducts_ScanIsOrderedAndStoppable(t *testing.T) {
	ctx := context.Background()
	s := NewProducts()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Put(ctx, inventory.Product{ID: id, SKU: "SKU-" + id}))
	}

	var seen []string
	require.NoError(t, s.Scan(ctx, func(p inventory.Product) bool {
		seen = append(seen, p.ID)
		return len(seen) < 2
	}))
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestOrders_ListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewOrders()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"o1", "o2", "o3"} {
		require.NoError(t, s.Put(ctx, orders.Order{ID: id, UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, s.Put(ctx, orders.Order{ID: "x", UserID: "u2", CreatedAt: base}))

	list, err := s.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "o3", list[0].ID)
	assert.Equal(t, "o2", list[1].ID)

	require.NoError(t, s.Delete(ctx, "o3"))
	list, _ = s.ListByUser(ctx, "u1", 0)
	assert.Len(t, list, 2)

	empty, err := s.ListByUser(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOrders_ItemsAreNotShared(t *testing.T) {
	ctx := context.Background()
	s := NewOrders()
	o := orders.Order{ID: "o1", UserID: "u1", Items: []orders.OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(2)}}}
	require.NoError(t, s.Put(ctx, o))

	o.Items[0].Quantity = 99
	got, _ := s.Get(ctx, "o1")
	assert.Equal(t, 1, got.Items[0].Quantity)

	got.Items[0].Quantity = 42
	again, _ := s.Get(ctx, "o1")
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestUsers_FindMissing(t *testing.T) {
	ctx := context.Background()
	s := NewUsers()
	require.NoError(t, s.Put(ctx, users.User{ID: "u1", Active: true}))

	u, err := s.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.Active)

	u, err = s.FindUserByID(ctx, "u2")
	assert.NoError(t, err)
	assert.Nil(t, u)
}
