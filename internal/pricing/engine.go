package pricing

import "github.com/shopspring/decimal"

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Tax      Money `json:"tax"`
	Shipping Money `json:"shipping"`
	Total    Money `json:"total"`
}

// Compute calculates cart totals given the provided inputs.
func Compute(items []Item, discount Money, taxBps int, shipping Money) Summary {
	subtotal := Zero
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	subtotal = Round(subtotal)
	discount = FloorAtZero(Min(discount, subtotal))
	taxable := FloorAtZero(subtotal.Sub(discount))
	tax := Round(taxable.Mul(decimal.NewFromInt(int64(taxBps))).Div(decimal.NewFromInt(10000)))
	shipping = FloorAtZero(shipping)
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping,
		Total:    taxable.Add(tax).Add(shipping),
	}
}

// Apportion spreads discount across lines proportionally to their totals.
// Each share is the difference of consecutive rounded running totals, so no
// share is negative or larger than its line, and the shares always sum to the
// applied discount. The discount is capped at the sum of totals.
func Apportion(discount Money, totals []Money) []Money {
	shares := make([]Money, len(totals))
	for i := range shares {
		shares[i] = Zero
	}
	sum := Zero
	last := -1
	for i, t := range totals {
		if t.IsPositive() {
			sum = sum.Add(t)
			last = i
		}
	}
	if last < 0 || !discount.IsPositive() {
		return shares
	}
	discount = Round(Min(discount, sum))

	running := Zero
	allocated := Zero
	for i, t := range totals {
		if !t.IsPositive() {
			continue
		}
		if i == last {
			shares[i] = discount.Sub(allocated)
			break
		}
		running = running.Add(t)
		cumulative := Round(discount.Mul(running).DivRound(sum, CalcScale))
		shares[i] = cumulative.Sub(allocated)
		allocated = cumulative
	}
	return shares
}
