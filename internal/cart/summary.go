package cart

import "github.com/noah-isme/backend-promo/internal/pricing"

// LineSummary is the priced view of one cart line.
type LineSummary struct {
	ID            string        `json:"id"`
	Sku           string        `json:"sku"`
	Qty           int           `json:"qty"`
	Total         pricing.Money `json:"total"`
	LineDiscount  pricing.Money `json:"lineDiscount"`
	SubtotalShare pricing.Money `json:"subtotalShare"`
	Net           pricing.Money `json:"net"`
}

// Summary is the priced cart after discounts.
type Summary struct {
	pricing.Summary
	Currency         string        `json:"currency"`
	ShippingDiscount pricing.Money `json:"shippingDiscount"`
	Lines            []LineSummary `json:"lines"`
}

// Summary prices the cart with every discount applied so far. The subtotal
// discount is spread over discountable lines in proportion to what is left
// of each line after item discounts.
func (c *Cart) Summary() Summary {
	lines := make([]LineSummary, 0, len(c.Items))
	items := make([]pricing.Item, 0, len(c.Items))
	remaining := make([]pricing.Money, 0, len(c.Items))
	lineDiscounts := pricing.Zero
	for _, it := range c.Items {
		if it == nil {
			continue
		}
		total := it.GrossTotal()
		lines = append(lines, LineSummary{
			ID:           it.ID,
			Sku:          it.Sku,
			Qty:          it.Qty,
			Total:        total,
			LineDiscount: it.DiscountAmount(),
		})
		items = append(items, pricing.Item{Qty: 1, UnitPrice: total})
		lineDiscounts = lineDiscounts.Add(it.DiscountAmount())
		if it.Discountable() {
			remaining = append(remaining, it.Total())
		} else {
			remaining = append(remaining, pricing.Zero)
		}
	}

	shares := pricing.Apportion(c.subtotalDiscount, remaining)
	for i := range lines {
		lines[i].SubtotalShare = shares[i]
		lines[i].Net = pricing.FloorAtZero(lines[i].Total.Sub(lines[i].LineDiscount).Sub(shares[i]))
	}

	shipping, shippingDiscount := pricing.Zero, pricing.Zero
	if opt := c.shippingOption(c.SelectedShipping); opt != nil {
		shippingDiscount = pricing.Min(opt.Discount, opt.Cost)
		shipping = opt.Cost.Sub(shippingDiscount)
	}

	return Summary{
		Summary:          pricing.Compute(items, lineDiscounts.Add(c.subtotalDiscount), c.TaxBps, shipping),
		Currency:         c.CurrencyCode,
		ShippingDiscount: shippingDiscount,
		Lines:            lines,
	}
}
