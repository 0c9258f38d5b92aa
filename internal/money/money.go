package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrNegativeAmount  = errors.New("amount must not be negative")
)

// Scale is the number of decimal places stored for credits and prices.
const Scale = 2

// Parse reads a credit or price amount. At most two decimal places are
// accepted and negative values are rejected.
func Parse(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if value.Exponent() < -Scale && !value.Equal(value.Round(Scale)) {
		return decimal.Zero, ErrTooManyDecimals
	}
	if value.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return value.Round(Scale), nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(Scale)
}

// Total sums price × quantity over a set of lines.
func Total[T any](lines []T, price func(T) decimal.Decimal, quantity func(T) int64) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(price(line).Mul(decimal.NewFromInt(quantity(line))))
	}
	return total
}
