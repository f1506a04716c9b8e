package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-core/internal/apperr"
)

type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type StockLevel string

const (
	LevelOutOfStock StockLevel = "out_of_stock"
	LevelLow        StockLevel = "low"
	LevelMedium     StockLevel = "medium"
	LevelHigh       StockLevel = "high"
)

const (
	// LowStockThreshold is also the reorder alert threshold.
	LowStockThreshold    = 10
	MediumStockThreshold = 50
)

func Classify(stock int) StockLevel {
	switch {
	case stock <= 0:
		return LevelOutOfStock
	case stock <= LowStockThreshold:
		return LevelLow
	case stock <= MediumStockThreshold:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// ProductStore is the product table plus its SKU index. Get and GetBySKU
// return (nil, nil) when nothing matches. Put must keep the SKU index in
// step with the table and reject a SKU owned by another product.
type ProductStore interface {
	Get(ctx context.Context, id string) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	Put(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
	Scan(ctx context.Context, fn func(Product) bool) error
}

// StockAdjuster is implemented by stores that can apply a stock delta as a
// single native read-modify-write (e.g. a row lock). It must follow Adjust's
// contract: NotFound, InsufficientStock, no partial writes.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
}

// ActiveSetter is implemented by stores that can flip the active flag
// without rewriting the rest of the row. Stores that also implement
// StockAdjuster must implement it, otherwise a full-row write could undo a
// concurrent stock change. Missing products yield ErrProductNotFound.
type ActiveSetter interface {
	SetActive(ctx context.Context, id string, active bool) error
}

// Notifier receives reorder alerts. Failures are logged by the ledger and
// never surface to the caller.
type Notifier interface {
	NotifyLowStock(ctx context.Context, p Product) error
}

func ErrProductNotFound(id string) error {
	return apperr.Newf(apperr.KindNotFound, "PRODUCT_NOT_FOUND", "product %s not found", id)
}

func ErrInsufficientStock(id string, requested, available int) error {
	return apperr.Newf(apperr.KindInsufficientStock, "INSUFFICIENT_STOCK",
		"product %s: requested %d, available %d", id, requested, available)
}

func ErrDuplicateSKU(sku string) error {
	return apperr.Newf(apperr.KindValidation, "DUPLICATE_SKU", "sku %s already exists", sku)
}
