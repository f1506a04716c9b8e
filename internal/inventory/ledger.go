package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/apperr"
	"github.com/ariefcatur/go-shop-core/internal/lockx"
	"github.com/ariefcatur/go-shop-core/internal/validation"
)

// Ledger is the only writer of product stock.
type Ledger struct {
	store    ProductStore
	locks    *lockx.Striped
	notifier Notifier
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Ledger)

func WithNotifier(n Notifier) Option { return func(l *Ledger) { l.notifier = n } }

func WithLogger(log *zap.Logger) Option { return func(l *Ledger) { l.log = log } }

func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

func NewLedger(store ProductStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		locks:  lockx.NewStriped(lockx.DefaultStripes),
		log:    zap.NewNop(),
		tracer: otel.Tracer("github.com/ariefcatur/go-shop-core/internal/inventory"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) FindByID(ctx context.Context, id string) (*Product, error) {
	return l.store.Get(ctx, id)
}

func (l *Ledger) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	return l.store.GetBySKU(ctx, sku)
}

// Adjust applies delta to the product's stock and returns the new value. A
// result below zero is rejected with InsufficientStock and nothing is written.
func (l *Ledger) Adjust(ctx context.Context, id string, delta int) (int, error) {
	ctx, span := l.tracer.Start(ctx, "inventory.adjust", trace.WithAttributes(
		attribute.String("product.id", id),
		attribute.Int("stock.delta", delta),
	))
	defer span.End()

	next, err := l.adjust(ctx, id, delta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int("stock.after", next))
	return next, nil
}

func (l *Ledger) adjust(ctx context.Context, id string, delta int) (int, error) {
	if a, ok := l.store.(StockAdjuster); ok {
		return a.AdjustStock(ctx, id, delta)
	}

	var next int
	err := l.locks.Do(id, func() error {
		p, err := l.store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("load product %s: %w", id, err)
		}
		if p == nil {
			return ErrProductNotFound(id)
		}
		next = p.Stock + delta
		if next < 0 {
			return ErrInsufficientStock(id, -delta, p.Stock)
		}
		p.Stock = next
		p.UpdatedAt = l.now()
		if err := l.store.Put(ctx, *p); err != nil {
			return fmt.Errorf("save product %s: %w", id, err)
		}
		return nil
	})
	return next, err
}

// Reserve takes qty units out of stock and raises a reorder alert when the
// remainder is at or below LowStockThreshold.
func (l *Ledger) Reserve(ctx context.Context, id string, qty int) (int, error) {
	if qty <= 0 {
		return 0, apperr.Newf(apperr.KindValidation, "INVALID_QUANTITY", "quantity must be positive, got %d", qty)
	}
	remaining, err := l.Adjust(ctx, id, -qty)
	if err != nil {
		return 0, err
	}
	if remaining <= LowStockThreshold {
		l.alertLowStock(ctx, id)
	}
	return remaining, nil
}

// Release puts qty units back into stock.
func (l *Ledger) Release(ctx context.Context, id string, qty int) (int, error) {
	if qty <= 0 {
		return 0, apperr.Newf(apperr.KindValidation, "INVALID_QUANTITY", "quantity must be positive, got %d", qty)
	}
	return l.Adjust(ctx, id, qty)
}

func (l *Ledger) alertLowStock(ctx context.Context, id string) {
	p, err := l.store.Get(ctx, id)
	if err != nil || p == nil {
		l.log.Warn("low stock alert skipped", zap.String("product_id", id), zap.Error(err))
		return
	}
	l.log.Info("low stock", zap.String("product_id", p.ID), zap.String("sku", p.SKU), zap.Int("stock", p.Stock))
	if l.notifier == nil {
		return
	}
	if err := l.notifier.NotifyLowStock(ctx, *p); err != nil {
		l.log.Warn("low stock notification failed", zap.String("product_id", p.ID), zap.Error(err))
	}
}

type Availability struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	InStock   int    `json:"in_stock"`
	Available bool   `json:"available"`
}

func (l *Ledger) CheckAvailability(ctx context.Context, id string, qty int) (Availability, error) {
	p, err := l.store.Get(ctx, id)
	if err != nil {
		return Availability{}, err
	}
	if p == nil {
		return Availability{}, ErrProductNotFound(id)
	}
	return Availability{ProductID: id, Requested: qty, InStock: p.Stock, Available: p.Stock >= qty}, nil
}

type StockStatus struct {
	ProductID string     `json:"product_id"`
	Stock     int        `json:"stock"`
	Level     StockLevel `json:"level"`
}

func (l *Ledger) StockLevel(ctx context.Context, id string) (StockStatus, error) {
	p, err := l.store.Get(ctx, id)
	if err != nil {
		return StockStatus{}, err
	}
	if p == nil {
		return StockStatus{}, ErrProductNotFound(id)
	}
	return StockStatus{ProductID: id, Stock: p.Stock, Level: Classify(p.Stock)}, nil
}

// ListLowStock returns active products with stock <= threshold, by SKU.
// A non-positive threshold means LowStockThreshold.
func (l *Ledger) ListLowStock(ctx context.Context, threshold int) ([]Product, error) {
	if threshold <= 0 {
		threshold = LowStockThreshold
	}
	var out []Product
	err := l.store.Scan(ctx, func(p Product) bool {
		if p.Active && p.Stock <= threshold {
			out = append(out, p)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

type NewProduct struct {
	SKU   string          `json:"sku" validate:"required,sku"`
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"money"`
	Stock int             `json:"stock" validate:"gte=0"`
}

// AddProduct registers a new active product. SKUs are unique.
func (l *Ledger) AddProduct(ctx context.Context, in NewProduct) (Product, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return Product{}, apperr.Wrap(apperr.KindValidation, "INVALID_PRODUCT", "invalid product", err)
	}

	now := l.now()
	p := Product{
		ID:        uuid.NewString(),
		SKU:       in.SKU,
		Name:      in.Name,
		Price:     in.Price,
		Stock:     in.Stock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := l.locks.Do("sku:"+p.SKU, func() error {
		existing, err := l.store.GetBySKU(ctx, p.SKU)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateSKU(p.SKU)
		}
		return l.store.Put(ctx, p)
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// SetActive toggles whether the product is sold. Only the flag is written;
// stock is left to Adjust.
func (l *Ledger) SetActive(ctx context.Context, id string, active bool) error {
	return l.locks.Do(id, func() error {
		if s, ok := l.store.(ActiveSetter); ok {
			return s.SetActive(ctx, id, active)
		}
		p, err := l.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound(id)
		}
		p.Active = active
		p.UpdatedAt = l.now()
		return l.store.Put(ctx, *p)
	})
}

// RemoveProduct deletes the product together with its SKU index entry.
func (l *Ledger) RemoveProduct(ctx context.Context, id string) error {
	return l.locks.Do(id, func() error {
		p, err := l.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound(id)
		}
		return l.store.Delete(ctx, id)
	})
}

type Report struct {
	TotalProducts int             `json:"total_products"`
	TotalItems    int             `json:"total_items"`
	TotalValue    decimal.Decimal `json:"total_value"`
	LowStockCount int             `json:"low_stock_count"`
}

// Report counts active products and their units; TotalValue covers the
// whole catalogue.
func (l *Ledger) Report(ctx context.Context) (Report, error) {
	r := Report{TotalValue: decimal.Zero}
	err := l.store.Scan(ctx, func(p Product) bool {
		r.TotalValue = r.TotalValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
		if !p.Active {
			return true
		}
		r.TotalProducts++
		r.TotalItems += p.Stock
		if p.Stock <= LowStockThreshold {
			r.LowStockCount++
		}
		return true
	})
	return r, err
}
