package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidCurrency(t *testing.T) {
	for _, c := range []string{"USD", "eur", "Gbp", "JPY", "PLN", "CAD"} {
		assert.True(t, IsValidCurrency(c), c)
	}
	for _, c := range []string{"", "CHF", "US", "usdd"} {
		assert.False(t, IsValidCurrency(c), c)
	}
}

func TestIsValidQuantity(t *testing.T) {
	assert.False(t, IsValidQuantity(0))
	assert.False(t, IsValidQuantity(-1))
	assert.True(t, IsValidQuantity(1))
	assert.True(t, IsValidQuantity(MaxQuantity))
	assert.False(t, IsValidQuantity(MaxQuantity+1))
}

func TestIsValidAmount(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"10.00", true},
		{"10.5", true},
		{"999999.99", true},
		{"1000000", false},
		{"10.001", false},
		{"-0.01", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsValidAmount(decimal.RequireFromString(tc.in)), tc.in)
	}
}

func TestIsValidSKU(t *testing.T) {
	assert.True(t, IsValidSKU("SKU-001"))
	assert.False(t, IsValidSKU("ab"))
	assert.False(t, IsValidSKU("bad<sku>"))
}

type priced struct {
	Currency string          `validate:"required,currency"`
	Price    decimal.Decimal `validate:"money"`
	SKU      string          `validate:"sku"`
}

func TestStruct_CustomTags(t *testing.T) {
	ok := priced{Currency: "usd", Price: decimal.RequireFromString("12.34"), SKU: "ABC"}
	require.NoError(t, Struct(ok))

	bad := priced{Currency: "XXX", Price: decimal.RequireFromString("1.234"), SKU: "A"}
	err := Struct(bad)
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Contains(t, fields, "priced.Currency")
	assert.Contains(t, fields, "priced.Price")
	assert.Contains(t, fields, "priced.SKU")
}
