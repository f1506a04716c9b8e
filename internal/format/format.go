// Package format renders money and order summaries for API responses and
// notifications. Presentation only.
package format

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"PLN": "zł",
}

var printer = message.NewPrinter(language.English)

func CurrencySymbol(code string) string {
	code = strings.ToUpper(code)
	if s, ok := symbols[code]; ok {
		return s
	}
	return code + " "
}

// Scale is the number of minor-unit digits for code (2 for USD, 0 for JPY).
// Unknown codes use 2.
func Scale(code string) int32 {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Currency formats amount in the currency's scale with thousands grouping,
// e.g. $1,234.50 or ¥1,500. Digits come from the decimal itself, never a float.
func Currency(amount decimal.Decimal, code string) string {
	scale := Scale(code)
	fixed := amount.Abs().StringFixed(scale)
	intPart, frac, _ := strings.Cut(fixed, ".")

	sign := ""
	if amount.Round(scale).IsNegative() {
		sign = "-"
	}
	out := sign + CurrencySymbol(code) + group(intPart)
	if frac != "" {
		out += "." + frac
	}
	return out
}

// group inserts the locale's thousands separator into a digit string.
func group(digits string) string {
	d, err := decimal.NewFromString(digits)
	if err != nil || d.LessThan(decimal.NewFromInt(1000)) || !d.LessThan(decimal.New(1, 18)) {
		return digits
	}
	return printer.Sprintf("%d", d.IntPart())
}

func OrderSummary(orderID string, total decimal.Decimal, code string, itemCount int) string {
	return fmt.Sprintf("Order #%s: %d items, %s", orderID, itemCount, Currency(total, code))
}

// Truncate keeps s within max bytes, marking the cut with "...". The cut
// never splits a UTF-8 sequence.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:runeBoundary(s, max)]
	}
	return s[:runeBoundary(s, max-3)] + "..."
}

// runeBoundary backs n off to the start of the rune containing s[n].
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
