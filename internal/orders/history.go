package orders

import (
	"context"

	"github.com/shopspring/decimal"
)

// HistoryLimit caps OrderHistory.
const HistoryLimit = 999

type Summary struct {
	ID        string          `json:"id"`
	Status    Status          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	ItemCount int             `json:"item_count"`
}

// OrderHistory returns compact summaries of the user's orders, newest first.
func (m *Manager) OrderHistory(ctx context.Context, userID string) ([]Summary, error) {
	list, err := m.store.ListByUser(ctx, userID, HistoryLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(list))
	for _, o := range list {
		out = append(out, Summary{
			ID:        o.ID,
			Status:    o.Status,
			Total:     o.Total,
			Currency:  o.Currency,
			ItemCount: len(o.Items),
		})
	}
	return out, nil
}

// CountOrders counts the user's orders, or every order when userID is empty.
func (m *Manager) CountOrders(ctx context.Context, userID string) (int, error) {
	if userID != "" {
		list, err := m.store.ListByUser(ctx, userID, 0)
		return len(list), err
	}
	n := 0
	err := m.store.Scan(ctx, func(Order) bool {
		n++
		return true
	})
	return n, err
}
