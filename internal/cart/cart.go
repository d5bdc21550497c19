package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-promo/internal/pricing"
	"github.com/noah-isme/backend-promo/internal/promotion"
)

// ErrInvalidInput is returned when a cart snapshot cannot be priced.
var ErrInvalidInput = errors.New("invalid input")

// LineItem is one line of a shopping cart snapshot.
type LineItem struct {
	ID        string        `json:"id"`
	Sku       string        `json:"sku" validate:"required"`
	Product   string        `json:"product" validate:"required"`
	Brand     string        `json:"brand,omitempty"`
	Qty       int           `json:"qty" validate:"gte=0"`
	UnitPrice pricing.Money `json:"unitPrice"`
	// GiftCertificate lines never take part in discounts or subtotal thresholds.
	GiftCertificate bool `json:"giftCertificate,omitempty"`
	// NoCartPromotion keeps the line out of item-level cart promotions.
	NoCartPromotion bool `json:"noCartPromotion,omitempty"`
	// DiscountExempt is the product-type opt out.
	DiscountExempt bool `json:"discountExempt,omitempty"`

	discount pricing.Money
}

func (li *LineItem) SkuCode() string     { return li.Sku }
func (li *LineItem) ProductCode() string { return li.Product }
func (li *LineItem) BrandCode() string   { return li.Brand }
func (li *LineItem) Quantity() int       { return li.Qty }

// GrossTotal is the line total before any discount.
func (li *LineItem) GrossTotal() pricing.Money {
	if li.Qty <= 0 {
		return pricing.Zero
	}
	return pricing.Round(li.UnitPrice.Mul(pricing.Quantity(li.Qty)))
}

// Total is the current line total: the gross total less the item discounts
// already applied, never below zero. Later actions price the line from it.
func (li *LineItem) Total() pricing.Money {
	return pricing.FloorAtZero(pricing.Round(li.GrossTotal().Sub(li.discount)))
}

// DiscountAmount is the sum of item-level discounts applied to the line.
func (li *LineItem) DiscountAmount() pricing.Money { return li.discount }

func (li *LineItem) Discountable() bool            { return !li.GiftCertificate }
func (li *LineItem) CanReceiveCartPromotion() bool { return !li.NoCartPromotion && !li.GiftCertificate }
func (li *LineItem) ExcludedFromDiscount() bool    { return li.DiscountExempt }

// ApplyDiscount adds amount to the line discount. The line discount never
// exceeds the gross line total.
func (li *LineItem) ApplyDiscount(amount pricing.Money) {
	if !amount.IsPositive() {
		return
	}
	li.discount = pricing.Min(li.discount.Add(amount), li.GrossTotal())
}

// ShippingOption is a shipping service level offered for the cart.
type ShippingOption struct {
	Code     string        `json:"code" validate:"required"`
	Cost     pricing.Money `json:"cost"`
	Discount pricing.Money `json:"discount"`
}

// Adjustment records a rule applied at subtotal or shipping level.
type Adjustment struct {
	RuleID   int64         `json:"ruleId"`
	ActionID int64         `json:"actionId"`
	Target   string        `json:"target"`
	Level    string        `json:"level,omitempty"`
	Amount   pricing.Money `json:"amount"`
}

const (
	TargetSubtotal = "subtotal"
	TargetShipping = "shipping"
)

// Cart is an in-memory shopping cart snapshot that discount actions read and
// modify. It is not safe for concurrent use.
type Cart struct {
	ID               string           `json:"id"`
	CurrencyCode     string           `json:"currency" validate:"required,len=3"`
	Items            []*LineItem      `json:"items" validate:"dive"`
	Shipping         []ShippingOption `json:"shipping,omitempty" validate:"dive"`
	SelectedShipping string           `json:"selectedShipping,omitempty"`
	TaxBps           int              `json:"taxBps,omitempty" validate:"gte=0,lte=10000"`
	CustomerEmail    string           `json:"customerEmail,omitempty" validate:"omitempty,email"`
	PromotionCodes   []string         `json:"promotionCodes,omitempty"`

	lookup           promotion.CategoryLookup
	subtotalDiscount pricing.Money
	records          []promotion.ApplicationRecord
	adjustments      []Adjustment
}

var (
	_ promotion.Container         = (*Cart)(nil)
	_ promotion.ShippingContainer = (*Cart)(nil)
	_ promotion.Item              = (*LineItem)(nil)
)

// Validate checks the invariants the engine relies on.
func (c *Cart) Validate() error {
	if c == nil {
		return fmt.Errorf("cart is required: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(c.CurrencyCode) == "" {
		return fmt.Errorf("currency is required: %w", ErrInvalidInput)
	}
	for i, it := range c.Items {
		if it == nil {
			return fmt.Errorf("item %d is empty: %w", i, ErrInvalidInput)
		}
		if it.Qty < 0 {
			return fmt.Errorf("item %d has negative quantity: %w", i, ErrInvalidInput)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d has negative price: %w", i, ErrInvalidInput)
		}
	}
	if c.SelectedShipping != "" && c.shippingOption(c.SelectedShipping) == nil {
		return fmt.Errorf("selected shipping level %q not offered: %w", c.SelectedShipping, ErrInvalidInput)
	}
	return nil
}

// HasPromotionCode reports whether the shopper entered the code. Codes are
// compared case-insensitively.
func (c *Cart) HasPromotionCode(code string) bool {
	for _, have := range c.PromotionCodes {
		if strings.EqualFold(strings.TrimSpace(have), strings.TrimSpace(code)) {
			return true
		}
	}
	return false
}

// SetCategoryLookup binds the catalog view used by category predicates.
func (c *Cart) SetCategoryLookup(lookup promotion.CategoryLookup) {
	c.lookup = lookup
}

// ProductCodes returns the distinct product codes in cart order.
func (c *Cart) ProductCodes() []string {
	seen := make(map[string]struct{}, len(c.Items))
	codes := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if it == nil {
			continue
		}
		if _, ok := seen[it.Product]; ok {
			continue
		}
		seen[it.Product] = struct{}{}
		codes = append(codes, it.Product)
	}
	return codes
}

func (c *Cart) CartItems() []promotion.Item {
	items := make([]promotion.Item, 0, len(c.Items))
	for _, it := range c.Items {
		if it != nil {
			items = append(items, it)
		}
	}
	return items
}

func (c *Cart) ItemsLowestToHighestPrice() []promotion.Item {
	items := promotion.FilterPromotable(c.CartItems())
	promotion.SortLowestToHighest(items)
	return items
}

// DiscountEligibleSubtotal is the current total of every line except gift
// certificates, so item discounts already taken are not counted again.
func (c *Cart) DiscountEligibleSubtotal() pricing.Money {
	sum := pricing.Zero
	for _, it := range c.Items {
		if it != nil && it.Discountable() {
			sum = sum.Add(it.Total())
		}
	}
	return sum
}

func (c *Cart) SubtotalDiscount() pricing.Money { return c.subtotalDiscount }

func (c *Cart) Currency() string { return c.CurrencyCode }

func (c *Cart) PriceAmount(item promotion.Item) pricing.Money {
	return pricing.UnitPrice(item.Total(), item.Quantity())
}

func (c *Cart) CategoryLookup() promotion.CategoryLookup { return c.lookup }

func (c *Cart) RecordRuleApplied(ruleID, actionID int64, item promotion.Item, amount pricing.Money, quantity int) {
	c.records = append(c.records, promotion.ApplicationRecord{
		RuleID:      ruleID,
		ActionID:    actionID,
		SkuCode:     item.SkuCode(),
		ProductCode: item.ProductCode(),
		Amount:      amount,
		Quantity:    quantity,
		Item:        item,
	})
}

// ApplySubtotalDiscount accumulates a subtotal level discount. The total never
// exceeds the discount-eligible subtotal.
func (c *Cart) ApplySubtotalDiscount(amount pricing.Money, ruleID, actionID int64) {
	if !amount.IsPositive() {
		return
	}
	room := pricing.FloorAtZero(c.DiscountEligibleSubtotal().Sub(c.subtotalDiscount))
	amount = pricing.Min(amount, room)
	c.subtotalDiscount = c.subtotalDiscount.Add(amount)
	c.adjustments = append(c.adjustments, Adjustment{RuleID: ruleID, ActionID: actionID, Target: TargetSubtotal, Amount: amount})
}

func (c *Cart) ShippingLevels() []promotion.ShippingLevel {
	levels := make([]promotion.ShippingLevel, 0, len(c.Shipping))
	for _, opt := range c.Shipping {
		levels = append(levels, promotion.ShippingLevel{Code: opt.Code, Cost: opt.Cost})
	}
	return levels
}

func (c *Cart) SelectedShippingLevel() string { return c.SelectedShipping }

func (c *Cart) SetShippingDiscount(levelCode string, amount pricing.Money) {
	if opt := c.shippingOption(levelCode); opt != nil {
		opt.Discount = pricing.Min(pricing.FloorAtZero(amount), opt.Cost)
	}
}

func (c *Cart) RecordShippingRuleApplied(ruleID, actionID int64, levelCode string, amount pricing.Money) {
	c.adjustments = append(c.adjustments, Adjustment{RuleID: ruleID, ActionID: actionID, Target: TargetShipping, Level: levelCode, Amount: amount})
}

func (c *Cart) shippingOption(code string) *ShippingOption {
	for i := range c.Shipping {
		if c.Shipping[i].Code == code {
			return &c.Shipping[i]
		}
	}
	return nil
}

// Records returns a copy of the item-level application log.
func (c *Cart) Records() []promotion.ApplicationRecord {
	out := make([]promotion.ApplicationRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Adjustments returns a copy of the subtotal and shipping application log.
func (c *Cart) Adjustments() []Adjustment {
	out := make([]Adjustment, len(c.adjustments))
	copy(out, c.adjustments)
	return out
}

// AppliedRuleIDs lists every rule that changed the cart, in first-applied order.
func (c *Cart) AppliedRuleIDs() []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, r := range c.records {
		add(r.RuleID)
	}
	for _, a := range c.adjustments {
		add(a.RuleID)
	}
	return ids
}
