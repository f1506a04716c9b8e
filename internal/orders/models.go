package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reserved is how many units the ledger actually handed out for the line;
// cancel and refund give back exactly this many.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Reserved  int             `json:"reserved"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"` // dihitung saat create; tidak di-update otomatis
	Currency  string          `json:"currency"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ItemInput is one requested line at checkout.
type ItemInput struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func newItem(in ItemInput) OrderItem {
	return OrderItem{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Price:     in.Price,
		Subtotal:  in.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
	}
}

// SumItems recomputes the total from item subtotals.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}

// Clone returns a copy that shares no item slice with o.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return c
}
