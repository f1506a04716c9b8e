package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-core/internal/apperr"
	"github.com/ariefcatur/go-shop-core/internal/format"
)

// kode promo -> persen potongan
var discountCodes = map[string]int64{
	"SAVE10": 10,
	"SAVE20": 20,
}

type Discount struct {
	OrderID    string          `json:"order_id"`
	Code       string          `json:"code"`
	Percentage int64           `json:"percentage"`
	Original   decimal.Decimal `json:"original"`
	Discounted decimal.Decimal `json:"discounted"`
	Currency   string          `json:"currency"`
}

// ApplyDiscount prices the order with a promo code. It is a quote: the
// stored order and its total are not changed.
func (m *Manager) ApplyDiscount(ctx context.Context, orderID, code string) (Discount, error) {
	o, err := m.store.Get(ctx, orderID)
	if err != nil {
		return Discount{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o == nil {
		return Discount{}, errOrderNotFound(orderID)
	}
	norm := strings.ToUpper(strings.TrimSpace(code))
	pct, ok := discountCodes[norm]
	if !ok {
		return Discount{}, apperr.Newf(apperr.KindValidation, "INVALID_CODE", "discount code %q not valid", code)
	}
	factor := decimal.NewFromInt(100 - pct).Div(decimal.NewFromInt(100))
	return Discount{
		OrderID:    o.ID,
		Code:       norm,
		Percentage: pct,
		Original:   o.Total,
		Discounted: o.Total.Mul(factor).Round(format.Scale(o.Currency)),
		Currency:   o.Currency,
	}, nil
}

const (
	HomeCountry = "US"

	// dipakai kalau item tidak membawa berat
	DefaultItemWeightKg = "0.5"
)

var (
	shippingBase      = decimal.NewFromInt(5)
	shippingPerKgHome = decimal.NewFromInt(2)
	shippingPerKgAway = decimal.NewFromInt(5)
)

type ShippingItem struct {
	Quantity int              `json:"quantity" validate:"gt=0,lte=10000"`
	WeightKg *decimal.Decimal `json:"weight_kg,omitempty"`
}

type ShippingQuote struct {
	Destination string          `json:"destination"`
	WeightKg    decimal.Decimal `json:"weight_kg"`
	Cost        decimal.Decimal `json:"cost"`
	Formatted   string          `json:"formatted"`
}

// QuoteShipping prices a parcel in USD: a flat base plus a per-kg rate that
// is higher outside HomeCountry.
func QuoteShipping(items []ShippingItem, destination string) (ShippingQuote, error) {
	dest := strings.ToUpper(strings.TrimSpace(destination))
	if dest == "" {
		return ShippingQuote{}, apperr.New(apperr.KindValidation, "INVALID_DESTINATION", "destination is required")
	}
	weight := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			return ShippingQuote{}, apperr.Newf(apperr.KindValidation, "INVALID_ITEMS", "invalid quantity %d", it.Quantity)
		}
		w := decimal.RequireFromString(DefaultItemWeightKg)
		if it.WeightKg != nil {
			if it.WeightKg.IsNegative() {
				return ShippingQuote{}, apperr.New(apperr.KindValidation, "INVALID_ITEMS", "weight cannot be negative")
			}
			w = *it.WeightKg
		}
		weight = weight.Add(w.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	rate := shippingPerKgAway
	if dest == HomeCountry {
		rate = shippingPerKgHome
	}
	cost := shippingBase.Add(weight.Mul(rate)).Round(2)
	return ShippingQuote{
		Destination: dest,
		WeightKg:    weight,
		Cost:        cost,
		Formatted:   format.Currency(cost, "USD"),
	}, nil
}
