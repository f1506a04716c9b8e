package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/apperr"
	"github.com/ariefcatur/go-shop-core/internal/validation"
)

// SetStock brings the product to an absolute count by applying the
// difference from the value it reads through Adjust. A reservation that lands
// between the read and the adjustment is kept, not overwritten.
func (l *Ledger) SetStock(ctx context.Context, id string, stock int) (int, error) {
	if stock < 0 {
		return 0, apperr.Newf(apperr.KindValidation, "INVALID_QUANTITY", "stock cannot be negative, got %d", stock)
	}
	p, err := l.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, ErrProductNotFound(id)
	}
	diff := stock - p.Stock
	if diff == 0 {
		return p.Stock, nil
	}
	return l.Adjust(ctx, id, diff)
}

// StockCount is one line of an external stock feed.
type StockCount struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type SyncFailure struct {
	SKU    string `json:"sku"`
	Reason string `json:"reason"`
}

type SyncResult struct {
	Synced int           `json:"synced"`
	Errors int           `json:"errors"`
	Failed []SyncFailure `json:"failed,omitempty"`
}

// SyncStock applies an external feed line by line. A bad line is counted
// and reported; it never stops the rest of the feed.
func (l *Ledger) SyncStock(ctx context.Context, feed []StockCount) SyncResult {
	var res SyncResult
	fail := func(sku, reason string) {
		res.Errors++
		res.Failed = append(res.Failed, SyncFailure{SKU: sku, Reason: reason})
	}
	for _, item := range feed {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			fail(item.SKU, "missing sku")
			continue
		}
		p, err := l.store.GetBySKU(ctx, sku)
		if err != nil {
			l.log.Warn("stock sync lookup", zap.String("sku", sku), zap.Error(err))
			fail(sku, "lookup failed")
			continue
		}
		if p == nil {
			fail(sku, "unknown sku")
			continue
		}
		if _, err := l.SetStock(ctx, p.ID, item.Quantity); err != nil {
			fail(sku, apperr.CodeOf(err))
			continue
		}
		res.Synced++
	}
	l.log.Info("stock sync", zap.Int("synced", res.Synced), zap.Int("errors", res.Errors))
	return res
}

type ReorderCandidate struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

type ReorderReport struct {
	LowStockCount int                `json:"low_stock_count"`
	Items         []ReorderCandidate `json:"items"`
}

// ReorderCheck lists the active products at or below LowStockThreshold.
func (l *Ledger) ReorderCheck(ctx context.Context) (ReorderReport, error) {
	low, err := l.ListLowStock(ctx, LowStockThreshold)
	if err != nil {
		return ReorderReport{}, err
	}
	rep := ReorderReport{Items: make([]ReorderCandidate, 0, len(low))}
	for _, p := range low {
		rep.Items = append(rep.Items, ReorderCandidate{ProductID: p.ID, SKU: p.SKU, Name: p.Name, Stock: p.Stock})
	}
	rep.LowStockCount = len(rep.Items)
	return rep, nil
}

const ReorderSubmitted = "submitted"

// Reorder is a purchase request sent to a supplier. Stock only moves when
// the goods arrive, through Adjust.
type Reorder struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Ledger) ProcessReorder(ctx context.Context, id string, qty int) (Reorder, error) {
	if !validation.IsValidQuantity(qty) {
		return Reorder{}, apperr.Newf(apperr.KindValidation, "INVALID_QUANTITY", "reorder quantity %d out of range", qty)
	}
	p, err := l.store.Get(ctx, id)
	if err != nil {
		return Reorder{}, err
	}
	if p == nil {
		return Reorder{}, ErrProductNotFound(id)
	}
	ro := Reorder{
		ID:        "ro-" + uuid.NewString(),
		ProductID: p.ID,
		SKU:       p.SKU,
		Quantity:  qty,
		Status:    ReorderSubmitted,
		CreatedAt: l.now(),
	}
	l.log.Info("reorder submitted",
		zap.String("reorder_id", ro.ID),
		zap.String("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.Int("quantity", qty))
	return ro, nil
}
