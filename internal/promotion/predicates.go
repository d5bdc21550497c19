package promotion

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-promo/internal/pricing"
)

// AnyBrand matches every branded product in BrandIs.
const AnyBrand = "ANY"

// Quantifier selects how cart-contains predicates compare quantities.
type Quantifier string

const (
	// AtLeast is satisfied when the cart holds N or more units.
	AtLeast Quantifier = "AT_LEAST"
	// Exactly is satisfied when the cart holds exactly N units.
	Exactly Quantifier = "EXACTLY"
)

// ParseQuantifier accepts AT_LEAST / EXACTLY in any case.
func ParseQuantifier(s string) (Quantifier, error) {
	switch Quantifier(strings.ToUpper(strings.TrimSpace(s))) {
	case AtLeast:
		return AtLeast, nil
	case Exactly:
		return Exactly, nil
	default:
		return "", fmt.Errorf("unknown quantifier %q: %w", s, ErrConfiguration)
	}
}

func (q Quantifier) satisfied(have, want int) bool {
	switch q {
	case AtLeast:
		return have >= want
	case Exactly:
		return have == want
	default:
		return false
	}
}

// ProductInCategory reports whether the item's product is in the compound
// category and not excluded. isIn=false inverts the result.
func ProductInCategory(item Item, lookup CategoryLookup, isIn bool, compoundCategoryID string, ex Exclusions) bool {
	matched := false
	if compoundCategoryID != "" && lookup != nil && !item.ExcludedFromDiscount() {
		matched = lookup.IsProductInCategory(item.ProductCode(), compoundCategoryID) &&
			!ex.IsProductExcluded(item.ProductCode())
	}
	if !isIn {
		return !matched
	}
	return matched
}

// ProductIs reports whether the item is the given product. isProduct=false
// inverts the result.
func ProductIs(item Item, isProduct bool, productCode string, ex Exclusions) bool {
	matched := false
	if productCode != "" && !item.ExcludedFromDiscount() {
		matched = item.ProductCode() == productCode && !ex.IsProductExcluded(item.ProductCode())
	}
	if !isProduct {
		return !matched
	}
	return matched
}

// BrandIs reports whether the item's product carries the brand. AnyBrand
// matches every branded product. isBrand=false inverts the result.
func BrandIs(item Item, isBrand bool, brandCode string, ex Exclusions) bool {
	matched := false
	if item.BrandCode() != "" && !item.ExcludedFromDiscount() {
		matched = (strings.EqualFold(brandCode, AnyBrand) || item.BrandCode() == brandCode) &&
			!ex.IsProductExcluded(item.ProductCode())
	}
	if !isBrand {
		return !matched
	}
	return matched
}

// CurrencyMatches reports whether the cart is priced in the currency code.
func CurrencyMatches(c Container, currencyCode string) bool {
	return c.Currency() == currencyCode
}

// ItemContributes reports whether an item counts toward a rule condition:
// discountable and not excluded by sku, product or any of its categories.
func ItemContributes(item Item, lookup CategoryLookup, ex Exclusions) bool {
	if !item.Discountable() || ex.excludesItem(item) {
		return false
	}
	if lookup != nil {
		for _, code := range lookup.CategoriesOf(item.ProductCode()) {
			if ex.IsCategoryExcluded(code) {
				return false
			}
		}
	}
	return true
}

// SubtotalAtLeast reports whether the discount-eligible subtotal, less
// excluded lines and any subtotal discount already taken, reaches threshold.
func SubtotalAtLeast(c Container, threshold pricing.Money, ex Exclusions) bool {
	return EligibleSubtotal(c, ex).Sub(c.SubtotalDiscount()).GreaterThanOrEqual(threshold)
}

// EligibleSubtotal is the container's discount-eligible subtotal minus the
// totals of discountable lines the exclusions remove.
func EligibleSubtotal(c Container, ex Exclusions) pricing.Money {
	subtotal := c.DiscountEligibleSubtotal()
	if ex.Empty() {
		return subtotal
	}
	lookup := c.CategoryLookup()
	for _, it := range c.CartItems() {
		if it.Discountable() && !ItemContributes(it, lookup, ex) {
			subtotal = subtotal.Sub(it.Total())
		}
	}
	return pricing.FloorAtZero(subtotal)
}

// ContainsSku reports whether the cart holds the quantity of the sku.
func ContainsSku(c Container, skuCode string, q Quantifier, quantity int) bool {
	have := 0
	for _, it := range c.CartItems() {
		if it.SkuCode() == skuCode {
			have += it.Quantity()
		}
	}
	return q.satisfied(have, quantity)
}

// ContainsAnySku counts every contributing unit in the cart.
func ContainsAnySku(c Container, q Quantifier, quantity int, ex Exclusions) bool {
	lookup := c.CategoryLookup()
	have := 0
	for _, it := range c.CartItems() {
		if ItemContributes(it, lookup, ex) {
			have += it.Quantity()
		}
	}
	return q.satisfied(have, quantity)
}

// ContainsProduct counts units of the product whose sku is not excluded.
func ContainsProduct(c Container, productCode string, q Quantifier, quantity int, ex Exclusions) bool {
	have := 0
	for _, it := range c.CartItems() {
		if it.ProductCode() == productCode && !ex.IsSkuExcluded(it.SkuCode()) {
			have += it.Quantity()
		}
	}
	return q.satisfied(have, quantity)
}

// ContainsItemsOfCategory counts contributing units in the compound category.
func ContainsItemsOfCategory(c Container, compoundCategoryID string, q Quantifier, quantity int, ex Exclusions) bool {
	lookup := c.CategoryLookup()
	have := 0
	for _, it := range c.CartItems() {
		if ProductInCategory(it, lookup, true, compoundCategoryID, ex) && ItemContributes(it, lookup, ex) {
			have += it.Quantity()
		}
	}
	return q.satisfied(have, quantity)
}
