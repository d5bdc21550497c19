package promotion

import "github.com/noah-isme/backend-promo/internal/pricing"

// Item is the view of a cart line item the engine reads and discounts. The
// engine never creates or removes items; ApplyDiscount is its only write.
type Item interface {
	SkuCode() string
	ProductCode() string
	BrandCode() string
	Quantity() int
	// Total is the current line total, net of the discounts already applied
	// to the line. Unit prices and the lowest-to-highest order derive from it.
	Total() pricing.Money
	DiscountAmount() pricing.Money
	// Discountable is false for lines such as gift certificates.
	Discountable() bool
	CanReceiveCartPromotion() bool
	// ExcludedFromDiscount reports a product-type level opt out.
	ExcludedFromDiscount() bool
	ApplyDiscount(amount pricing.Money)
}

// CategoryLookup answers catalog membership questions for products in a cart.
type CategoryLookup interface {
	// IsProductInCategory reports whether the product sits in the compound
	// category (categoryCode|catalogCode) or any of its descendants.
	IsProductInCategory(productCode, compoundCategoryID string) bool
	// CategoriesOf returns the category codes the product is linked to,
	// ancestors included.
	CategoriesOf(productCode string) []string
}

// ApplicationRecord is an audit entry for one discounted line.
type ApplicationRecord struct {
	RuleID      int64         `json:"rule_id"`
	ActionID    int64         `json:"action_id"`
	SkuCode     string        `json:"sku_code"`
	ProductCode string        `json:"product_code"`
	Amount      pricing.Money `json:"amount"`
	Quantity    int           `json:"quantity"`
	Item        Item          `json:"-"`
}
