package promotion

import (
	"sort"

	"github.com/noah-isme/backend-promo/internal/pricing"
)

// Recorder receives one call per line actually discounted in commit mode.
type Recorder interface {
	RecordRuleApplied(ruleID, actionID int64, item Item, amount pricing.Money, quantity int)
}

// Container is the narrow view of a shopping cart that discount actions need.
type Container interface {
	Recorder

	// ItemsLowestToHighestPrice returns items that can receive cart
	// promotions, ordered by ascending line total. Ties keep cart order.
	ItemsLowestToHighestPrice() []Item
	// CartItems returns every line in cart order.
	CartItems() []Item
	// DiscountEligibleSubtotal is the cart subtotal minus non-discountable lines.
	DiscountEligibleSubtotal() pricing.Money
	// SubtotalDiscount is the subtotal-level discount applied so far.
	SubtotalDiscount() pricing.Money
	Currency() string
	// PriceAmount is the per-unit price of the line.
	PriceAmount(item Item) pricing.Money
	CategoryLookup() CategoryLookup
	ApplySubtotalDiscount(amount pricing.Money, ruleID, actionID int64)
}

// ShippingLevel is a shipping service level offered for the cart.
type ShippingLevel struct {
	Code string
	Cost pricing.Money
}

// ShippingContainer is implemented by containers that carry shipping options.
type ShippingContainer interface {
	ShippingLevels() []ShippingLevel
	SelectedShippingLevel() string
	SetShippingDiscount(levelCode string, amount pricing.Money)
	RecordShippingRuleApplied(ruleID, actionID int64, levelCode string, amount pricing.Money)
}

// SortLowestToHighest orders items by ascending total, keeping the original
// order of equal totals.
func SortLowestToHighest(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Total().LessThan(items[j].Total())
	})
}

// FilterPromotable keeps items flagged as able to receive cart promotions.
func FilterPromotable(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it != nil && it.CanReceiveCartPromotion() {
			out = append(out, it)
		}
	}
	return out
}
