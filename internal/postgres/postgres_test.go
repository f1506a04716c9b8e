package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-core/internal/apperr"
	"github.com/ariefcatur/go-shop-core/internal/inventory"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/users"
)

// These run against a real database; set POSTGRES_TEST_DSN to enable them.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

func TestProducts_AdjustStockUnderRowLock(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := &Products{DB: pool}

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := inventory.Product{
		ID: uuid.NewString(), SKU: "PG-" + uuid.NewString()[:8], Name: "Widget",
		Price: decimal.RequireFromString("12.50"), Stock: 3, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Put(ctx, p))
	t.Cleanup(func() { _ = repo.Delete(ctx, p.ID) })

	got, err := repo.GetBySKU(ctx, p.SKU)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, p.Price.Equal(got.Price))

	_, err = repo.AdjustStock(ctx, p.ID, -4)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	next, err := repo.AdjustStock(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	_, err = repo.AdjustStock(ctx, uuid.NewString(), 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	dup := p
	dup.ID = uuid.NewString()
	assert.Equal(t, "DUPLICATE_SKU", apperr.CodeOf(repo.Put(ctx, dup)))
}

func TestProducts_SetActiveLeavesStockAlone(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := &Products{DB: pool}

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := inventory.Product{
		ID: uuid.NewString(), SKU: "PG-" + uuid.NewString()[:8], Name: "Gadget",
		Price: decimal.RequireFromString("3.00"), Stock: 5, Active: true,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Put(ctx, p))
	t.Cleanup(func() { _ = repo.Delete(ctx, p.ID) })

	_, err := repo.AdjustStock(ctx, p.ID, -3)
	require.NoError(t, err)
	require.NoError(t, repo.SetActive(ctx, p.ID, false))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
	assert.False(t, got.Active)

	assert.ErrorIs(t, repo.SetActive(ctx, uuid.NewString(), true), apperr.ErrNotFound)
}

func TestOrders_RoundTripAndSwap(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := &Orders{DB: pool}
	userRepo := &Users{DB: pool}

	userID := uuid.NewString()
	require.NoError(t, userRepo.Put(ctx, users.User{ID: userID, Name: "Ann", Active: true}))
	u, err := userRepo.FindUserByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, u)

	now := time.Now().UTC().Truncate(time.Millisecond)
	o := orders.Order{
		ID: uuid.NewString(), UserID: userID, Currency: "USD", Status: orders.StatusCreated,
		Items: []orders.OrderItem{
			{ProductID: "p1", Quantity: 2, Reserved: 2, Price: decimal.RequireFromString("1.25"), Subtotal: decimal.RequireFromString("2.50")},
			{ProductID: "p2", Quantity: 1, Reserved: 0, Price: decimal.RequireFromString("4.00"), Subtotal: decimal.RequireFromString("4.00")},
		},
		Total:     decimal.RequireFromString("6.50"),
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Put(ctx, o))
	t.Cleanup(func() { _ = repo.Delete(ctx, o.ID) })

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Reserved)
	assert.Equal(t, 0, got.Items[1].Reserved)
	assert.True(t, o.Total.Equal(got.Total))

	ok, err := repo.SwapStatus(ctx, o.ID, orders.StatusPending, orders.StatusProcessing, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.SwapStatus(ctx, o.ID, orders.StatusCreated, orders.StatusPending, now)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, orders.StatusPending, list[0].Status)

	missing, err := repo.Get(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
