package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const MaxQuantity = 10000

// MaxAmount is the largest accepted unit price.
var MaxAmount = decimal.RequireFromString("999999.99")

var currencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "PLN": {}, "CAD": {},
}

// std backs the package-level predicates.
var std = New()

// New returns a validator with the shop's custom tags registered:
// currency, money (decimal.Decimal, >= 0, <= MaxAmount, max 2 decimals) and sku.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// decimal.Decimal divalidasi sebagai string supaya tag custom bisa jalan
	v.RegisterCustomTypeFunc(decimalAsString, decimal.Decimal{})

	_ = v.RegisterValidation("currency", func(fl validatorv10.FieldLevel) bool {
		return IsValidCurrency(fl.Field().String())
	})
	_ = v.RegisterValidation("money", func(fl validatorv10.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return IsValidAmount(d)
	})
	_ = v.RegisterValidation("sku", func(fl validatorv10.FieldLevel) bool {
		return IsValidSKU(fl.Field().String())
	})
	return v
}

func decimalAsString(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// IsValidCurrency is case-insensitive.
func IsValidCurrency(code string) bool {
	_, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

func IsValidQuantity(q int) bool {
	return std.Var(q, "gt=0,lte=10000") == nil
}

func IsValidAmount(d decimal.Decimal) bool {
	if d.IsNegative() || d.GreaterThan(MaxAmount) {
		return false
	}
	return d.Equal(d.Truncate(2))
}

// IsValidSKU: minimal 3 karakter, tanpa karakter markup.
func IsValidSKU(sku string) bool {
	if len(sku) < 3 {
		return false
	}
	return !strings.ContainsAny(sku, `<>&'"\`)
}

// Struct validates a tagged struct with the shared validator.
func Struct(s interface{}) error {
	return std.Struct(s)
}

// FieldErrors flattens validator errors into namespace -> message.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Error()
		}
	} else if err != nil {
		out["error"] = err.Error()
	}
	return out
}
