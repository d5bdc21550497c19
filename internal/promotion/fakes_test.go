package promotion

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-promo/internal/pricing"
)

func money(s string) pricing.Money {
	return decimal.RequireFromString(s)
}

type fakeItem struct {
	sku, product, brand string
	qty                 int
	total               pricing.Money
	discount            pricing.Money
	nonDiscountable     bool
	notPromotable       bool
	excluded            bool
}

func newItem(sku, product string, qty int, total string) *fakeItem {
	return &fakeItem{sku: sku, product: product, qty: qty, total: money(total), discount: pricing.Zero}
}

func (f *fakeItem) SkuCode() string               { return f.sku }
func (f *fakeItem) ProductCode() string           { return f.product }
func (f *fakeItem) BrandCode() string             { return f.brand }
func (f *fakeItem) Quantity() int                 { return f.qty }
func (f *fakeItem) Total() pricing.Money          { return f.total }
func (f *fakeItem) DiscountAmount() pricing.Money { return f.discount }
func (f *fakeItem) Discountable() bool            { return !f.nonDiscountable }
func (f *fakeItem) CanReceiveCartPromotion() bool { return !f.notPromotable }
func (f *fakeItem) ExcludedFromDiscount() bool    { return f.excluded }
func (f *fakeItem) ApplyDiscount(amount pricing.Money) {
	f.discount = f.discount.Add(amount)
	f.total = pricing.FloorAtZero(f.total.Sub(amount))
}

type fakeLookup struct {
	// product code -> compound ids the product belongs to
	members map[string][]string
	// product code -> category codes including ancestors
	categories map[string][]string
}

func (l fakeLookup) IsProductInCategory(productCode, compoundID string) bool {
	for _, id := range l.members[productCode] {
		if id == compoundID {
			return true
		}
	}
	return false
}

func (l fakeLookup) CategoriesOf(productCode string) []string {
	return l.categories[productCode]
}

type fakeContainer struct {
	items            []*fakeItem
	lookup           CategoryLookup
	currency         string
	subtotalDiscount pricing.Money
	records          []ApplicationRecord
}

func newContainer(items ...*fakeItem) *fakeContainer {
	return &fakeContainer{items: items, currency: "USD", subtotalDiscount: pricing.Zero}
}

func (c *fakeContainer) RecordRuleApplied(ruleID, actionID int64, item Item, amount pricing.Money, quantity int) {
	c.records = append(c.records, ApplicationRecord{
		RuleID: ruleID, ActionID: actionID, SkuCode: item.SkuCode(), ProductCode: item.ProductCode(),
		Amount: amount, Quantity: quantity, Item: item,
	})
}

func (c *fakeContainer) ItemsLowestToHighestPrice() []Item {
	items := FilterPromotable(c.CartItems())
	SortLowestToHighest(items)
	return items
}

func (c *fakeContainer) CartItems() []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	return out
}

func (c *fakeContainer) DiscountEligibleSubtotal() pricing.Money {
	sum := pricing.Zero
	for _, it := range c.items {
		if it.Discountable() {
			sum = sum.Add(it.total)
		}
	}
	return sum
}

func (c *fakeContainer) SubtotalDiscount() pricing.Money { return c.subtotalDiscount }
func (c *fakeContainer) Currency() string                { return c.currency }

func (c *fakeContainer) PriceAmount(item Item) pricing.Money {
	return pricing.UnitPrice(item.Total(), item.Quantity())
}

func (c *fakeContainer) CategoryLookup() CategoryLookup { return c.lookup }

func (c *fakeContainer) ApplySubtotalDiscount(amount pricing.Money, ruleID, actionID int64) {
	c.subtotalDiscount = c.subtotalDiscount.Add(amount)
}

type fakeShippingContainer struct {
	*fakeContainer
	levels    []ShippingLevel
	selected  string
	discounts map[string]pricing.Money
	shipped   []string
}

func (s *fakeShippingContainer) ShippingLevels() []ShippingLevel { return s.levels }
func (s *fakeShippingContainer) SelectedShippingLevel() string   { return s.selected }

func (s *fakeShippingContainer) SetShippingDiscount(levelCode string, amount pricing.Money) {
	if s.discounts == nil {
		s.discounts = make(map[string]pricing.Money)
	}
	s.discounts[levelCode] = amount
}

func (s *fakeShippingContainer) RecordShippingRuleApplied(ruleID, actionID int64, levelCode string, amount pricing.Money) {
	s.shipped = append(s.shipped, levelCode+":"+amount.StringFixed(2))
}
