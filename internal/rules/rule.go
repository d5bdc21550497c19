package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/pricing"
	"github.com/noah-isme/backend-promo/internal/promotion"
)

// ConditionKind names a rule gate.
type ConditionKind string

const (
	SubtotalAtLeast      ConditionKind = "subtotal_at_least"
	CurrencyIs           ConditionKind = "currency_is"
	CartContainsSku      ConditionKind = "cart_contains_sku"
	CartContainsProduct  ConditionKind = "cart_contains_product"
	CartContainsCategory ConditionKind = "cart_contains_category"
	CartContainsAnySku   ConditionKind = "cart_contains_any_sku"
	CartContainsBrand    ConditionKind = "cart_contains_brand"
	CouponCodeEntered    ConditionKind = "coupon_code_entered"
)

// Condition is one gate a rule checks before its actions fire.
type Condition struct {
	Kind ConditionKind `json:"kind" validate:"required"`
	// Target is the threshold amount, currency, sku, product, compound
	// category, brand or coupon code depending on Kind.
	Target     string `json:"target,omitempty"`
	Quantifier string `json:"quantifier,omitempty"`
	Quantity   int    `json:"quantity,omitempty" validate:"gte=0"`
	Exceptions string `json:"exceptions,omitempty"`
}

// ActionSpec configures one discount action of a rule.
type ActionSpec struct {
	ID                int64          `json:"id"`
	Kind              promotion.Kind `json:"kind" validate:"required"`
	Value             string         `json:"value" validate:"required"`
	Exceptions        string         `json:"exceptions,omitempty"`
	AvailableQuantity int            `json:"availableQuantity,omitempty" validate:"gte=0"`
	Target            string         `json:"target,omitempty"`
	NthItem           int            `json:"nthItem,omitempty" validate:"gte=0"`
	// CouponLimited scales AvailableQuantity by the shopper's remaining
	// coupon uses.
	CouponLimited bool `json:"couponLimited,omitempty"`
}

// Rule is a promotion: a set of gates and the actions fired when all pass.
type Rule struct {
	ID         int64        `json:"id" validate:"required"`
	Code       string       `json:"code"`
	Conditions []Condition  `json:"conditions,omitempty" validate:"dive"`
	Actions    []ActionSpec `json:"actions" validate:"required,dive"`
}

// Firing is one applyDiscount request: a rule's action with its parameters.
type Firing struct {
	RuleID   int64
	ActionID int64
	ActionSpec
}

// Firings expands the rule into its actions in declaration order.
func (r Rule) Firings() []Firing {
	out := make([]Firing, 0, len(r.Actions))
	for _, a := range r.Actions {
		out = append(out, Firing{RuleID: r.ID, ActionID: a.ID, ActionSpec: a})
	}
	return out
}

// Params converts the firing into engine parameters.
func (f Firing) Params() promotion.ActionParams {
	return promotion.ActionParams{
		RuleID:            f.RuleID,
		ActionID:          f.ActionID,
		Kind:              f.Kind,
		Value:             f.Value,
		Exceptions:        f.Exceptions,
		AvailableQuantity: f.AvailableQuantity,
		Target:            f.Target,
		NthItem:           f.NthItem,
	}
}

// Matches reports whether the cart passes the condition.
func (c Condition) Matches(ct *cart.Cart) (bool, error) {
	ex := promotion.ParseExclusions(c.Exceptions)
	switch c.Kind {
	case SubtotalAtLeast:
		threshold, err := pricing.ParseAmount(c.Target)
		if err != nil {
			return false, c.invalid(err)
		}
		return promotion.SubtotalAtLeast(ct, threshold, ex), nil
	case CurrencyIs:
		return promotion.CurrencyMatches(ct, strings.ToUpper(strings.TrimSpace(c.Target))), nil
	case CouponCodeEntered:
		return ct.HasPromotionCode(c.Target), nil
	case CartContainsBrand:
		for _, it := range ct.CartItems() {
			if promotion.BrandIs(it, true, c.Target, ex) {
				return true, nil
			}
		}
		return false, nil
	}

	q, want, err := c.quantity()
	if err != nil {
		return false, c.invalid(err)
	}
	switch c.Kind {
	case CartContainsSku:
		return promotion.ContainsSku(ct, c.Target, q, want), nil
	case CartContainsProduct:
		return promotion.ContainsProduct(ct, c.Target, q, want, ex), nil
	case CartContainsAnySku:
		return promotion.ContainsAnySku(ct, q, want, ex), nil
	case CartContainsCategory:
		if ct.CategoryLookup() == nil {
			return false, fmt.Errorf("condition %s: category lookup: %w", c.Kind, promotion.ErrMissingBinding)
		}
		return promotion.ContainsItemsOfCategory(ct, c.Target, q, want, ex), nil
	default:
		return false, c.invalid(errors.New("unknown condition"))
	}
}

// quantity defaults to at least one unit. EXACTLY keeps a zero quantity, so
// a rule can require that the cart holds none of the target.
func (c Condition) quantity() (promotion.Quantifier, int, error) {
	q := promotion.AtLeast
	if strings.TrimSpace(c.Quantifier) != "" {
		parsed, err := promotion.ParseQuantifier(c.Quantifier)
		if err != nil {
			return "", 0, err
		}
		q = parsed
	}
	want := c.Quantity
	if want < 0 {
		return "", 0, errors.New("quantity must not be negative")
	}
	if want == 0 && q == promotion.AtLeast {
		want = 1
	}
	return q, want, nil
}

func (c Condition) invalid(err error) error {
	return fmt.Errorf("condition %s %q: %w: %w", c.Kind, c.Target, promotion.ErrConfiguration, err)
}
