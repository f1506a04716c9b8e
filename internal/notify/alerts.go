package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-shop-core/internal/events"
	"github.com/ariefcatur/go-shop-core/internal/inventory"
	"github.com/ariefcatur/go-shop-core/internal/redisx"
)

// StockAlerts publishes reorder alerts, at most one per product per TTL
// window when a Redis store is configured.
type StockAlerts struct {
	rdb      redisx.Cmdable
	pub      events.Publisher
	producer string
	ttl      time.Duration
}

var _ inventory.Notifier = (*StockAlerts)(nil)

func NewStockAlerts(rdb redisx.Cmdable, pub events.Publisher, producer string, ttl time.Duration) *StockAlerts {
	if ttl <= 0 {
		ttl = redisx.TTLStockAlert
	}
	return &StockAlerts{rdb: rdb, pub: pub, producer: producer, ttl: ttl}
}

func (a *StockAlerts) NotifyLowStock(ctx context.Context, p inventory.Product) error {
	if a.rdb != nil {
		first, err := a.rdb.SetNX(ctx, fmt.Sprintf(redisx.KeyLowStockAlert, p.ID), p.Stock, a.ttl).Result()
		if err != nil {
			return fmt.Errorf("alert dedup %s: %w", p.ID, err)
		}
		if !first {
			return nil
		}
	}
	if a.pub == nil {
		return nil
	}
	ev, err := events.New(events.EventStockLow, a.producer, p.ID, events.StockLowPayload{
		ProductID: p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Stock:     p.Stock,
	})
	if err != nil {
		return err
	}
	return a.pub.Publish(ctx, events.TopicStockLow, ev)
}
