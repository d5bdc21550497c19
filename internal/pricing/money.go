package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents an exact decimal monetary value.
type Money = decimal.Decimal

const (
	// Scale is the number of fraction digits kept on monetary results.
	Scale int32 = 2
	// CalcScale is the precision used for intermediate unit prices.
	CalcScale int32 = 10
)

var (
	// ErrInvalidAmount is returned when an amount or percent string cannot be parsed.
	ErrInvalidAmount = errors.New("pricing: invalid amount")

	// Zero is the zero amount.
	Zero = decimal.Zero

	hundred = decimal.NewFromInt(100)
)

// Round rounds m to Scale using half-up rounding.
func Round(m Money) Money {
	return m.Round(Scale)
}

// ParseAmount parses a non-negative monetary amount such as "12.50".
func ParseAmount(s string) (Money, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Zero, fmt.Errorf("empty value: %w", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Zero, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}
	if d.IsNegative() {
		return Zero, fmt.Errorf("%q is negative: %w", s, ErrInvalidAmount)
	}
	return d, nil
}

// ParsePercent parses a percentage expressed as 0-100 (e.g. "25" for 25% off).
func ParsePercent(s string) (Money, error) {
	p, err := ParseAmount(s)
	if err != nil {
		return Zero, err
	}
	if p.GreaterThan(hundred) {
		return Zero, fmt.Errorf("%q exceeds 100: %w", s, ErrInvalidAmount)
	}
	return p, nil
}

// PercentFraction converts a 0-100 percentage into a multiplier, keeping two
// digits of percent precision.
func PercentFraction(percent Money) Money {
	return percent.Round(Scale).Div(hundred)
}

// UnitPrice returns total divided by qty at CalcScale. Non-positive quantities
// yield zero.
func UnitPrice(total Money, qty int) Money {
	if qty <= 0 {
		return Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(qty)), CalcScale)
}

// Quantity converts a unit count into a decimal multiplier.
func Quantity(n int) Money {
	return decimal.NewFromInt(int64(n))
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// FloorAtZero clamps negative values to zero.
func FloorAtZero(m Money) Money {
	if m.IsNegative() {
		return Zero
	}
	return m
}
