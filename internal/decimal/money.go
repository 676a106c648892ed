package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits amounts are encoded with
const Scale = 2

// Zero is decimal zero
var Zero = decimal.Zero

// FromString parses decimal from string, ignoring surrounding whitespace
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// MustFromString parses decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Round rounds half away from zero to Scale places
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Format renders d as fixed-point text with exactly Scale fraction digits
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}
