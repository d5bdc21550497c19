package promotion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-promo/internal/pricing"
)

// Kind identifies the shape of a discount action.
type Kind string

const (
	KindCategoryAmount    Kind = "category_amount"
	KindCategoryPercent   Kind = "category_percent"
	KindProductAmount     Kind = "product_amount"
	KindProductPercent    Kind = "product_percent"
	KindSkuAmount         Kind = "sku_amount"
	KindSkuPercent        Kind = "sku_percent"
	KindNthProductPercent Kind = "nth_product_percent"
	KindSubtotalAmount    Kind = "subtotal_amount"
	KindSubtotalPercent   Kind = "subtotal_percent"
	KindShippingAmount    Kind = "shipping_amount"
	KindShippingPercent   Kind = "shipping_percent"
)

// AnyShippingLevel targets whichever shipping level is selected on the cart.
const AnyShippingLevel = "0"

const compoundSeparator = "|"

// Kinds lists every supported action kind.
func Kinds() []Kind {
	return []Kind{
		KindCategoryAmount, KindCategoryPercent,
		KindProductAmount, KindProductPercent,
		KindSkuAmount, KindSkuPercent, KindNthProductPercent,
		KindSubtotalAmount, KindSubtotalPercent,
		KindShippingAmount, KindShippingPercent,
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Percent reports whether the action's value is a percentage.
func (k Kind) Percent() bool {
	switch k {
	case KindCategoryPercent, KindProductPercent, KindSkuPercent, KindNthProductPercent,
		KindSubtotalPercent, KindShippingPercent:
		return true
	default:
		return false
	}
}

func (k Kind) needsTarget() bool {
	switch k {
	case KindSubtotalAmount, KindSubtotalPercent:
		return false
	default:
		return true
	}
}

// ActionParams are the raw parameters of a fired discount action.
type ActionParams struct {
	RuleID   int64
	ActionID int64
	Kind     Kind
	// Value is an amount ("5.00") or a 0-100 percent ("15") depending on Kind.
	Value      string
	Exceptions string
	// AvailableQuantity caps discounted units; 0 means unlimited.
	AvailableQuantity int
	// Target is a compound category id (code|catalog), product code, sku code
	// or shipping level code depending on Kind.
	Target  string
	NthItem int
}

// Action is one configured discount. It is immutable after construction and
// safe to apply to many containers; every Apply call allocates its own state.
type Action struct {
	ruleID     int64
	actionID   int64
	kind       Kind
	value      pricing.Money
	exclusions Exclusions
	maxItems   int
	target     string
	nthItem    int
}

// NewAction validates p and builds the action. Configuration problems are
// reported as *ConfigError and never defaulted.
func NewAction(p ActionParams) (*Action, error) {
	if !p.Kind.Valid() {
		return nil, configError(p, "kind", string(p.Kind), nil)
	}
	var (
		value pricing.Money
		err   error
	)
	if p.Kind.Percent() {
		value, err = pricing.ParsePercent(p.Value)
		if err != nil {
			return nil, configError(p, "percent", p.Value, err)
		}
		value = pricing.PercentFraction(value)
	} else {
		value, err = pricing.ParseAmount(p.Value)
		if err != nil {
			return nil, configError(p, "amount", p.Value, err)
		}
	}
	if p.AvailableQuantity < 0 {
		return nil, configError(p, "available quantity", fmt.Sprint(p.AvailableQuantity), errors.New("must not be negative"))
	}
	target := strings.TrimSpace(p.Target)
	if err := validateTarget(p.Kind, target); err != nil {
		return nil, configError(p, "target", p.Target, err)
	}
	if p.Kind == KindNthProductPercent && p.NthItem <= 0 {
		return nil, configError(p, "nth item", fmt.Sprint(p.NthItem), errors.New("must be positive"))
	}
	return &Action{
		ruleID:     p.RuleID,
		actionID:   p.ActionID,
		kind:       p.Kind,
		value:      value,
		exclusions: ParseExclusions(p.Exceptions),
		maxItems:   p.AvailableQuantity,
		target:     target,
		nthItem:    p.NthItem,
	}, nil
}

func validateTarget(kind Kind, target string) error {
	if !kind.needsTarget() {
		return nil
	}
	if target == "" {
		return errors.New("target is required")
	}
	if kind == KindCategoryAmount || kind == KindCategoryPercent {
		code, catalog, ok := strings.Cut(target, compoundSeparator)
		if !ok || strings.TrimSpace(code) == "" || strings.TrimSpace(catalog) == "" || strings.Contains(catalog, compoundSeparator) {
			return errors.New("category target must be categoryCode|catalogCode")
		}
	}
	return nil
}

// RuleID returns the owning rule id.
func (a *Action) RuleID() int64 { return a.ruleID }

// ActionID returns the action id.
func (a *Action) ActionID() int64 { return a.actionID }

// Kind returns the action kind.
func (a *Action) Kind() Kind { return a.kind }

// Exclusions returns the parsed exception lists.
func (a *Action) Exclusions() Exclusions { return a.exclusions }

// Apply computes the discount this action grants on the container. When
// actuallyApply is false nothing on the container is modified.
func (a *Action) Apply(actuallyApply bool, c Container) (pricing.Money, error) {
	if a == nil {
		return pricing.Zero, fmt.Errorf("nil action: %w", ErrMissingBinding)
	}
	if c == nil {
		return pricing.Zero, ErrMissingBinding
	}
	switch a.kind {
	case KindCategoryAmount, KindCategoryPercent,
		KindProductAmount, KindProductPercent,
		KindSkuAmount, KindSkuPercent, KindNthProductPercent:
		return a.applyToItems(actuallyApply, c)
	case KindSubtotalAmount, KindSubtotalPercent:
		return a.applyToSubtotal(actuallyApply, c), nil
	case KindShippingAmount, KindShippingPercent:
		return a.applyToShipping(actuallyApply, c)
	default:
		return pricing.Zero, fmt.Errorf("kind %q: %w", a.kind, ErrConfiguration)
	}
}

// EligibleItems returns the container items this action may discount, in
// allocation order.
func (a *Action) EligibleItems(c Container) []Item {
	lookup := c.CategoryLookup()
	eligible := make([]Item, 0)
	for _, it := range c.ItemsLowestToHighestPrice() {
		if it != nil && a.eligible(it, lookup) {
			eligible = append(eligible, it)
		}
	}
	SortLowestToHighest(eligible)
	return eligible
}

func (a *Action) applyToItems(actuallyApply bool, c Container) (pricing.Money, error) {
	if (a.kind == KindCategoryAmount || a.kind == KindCategoryPercent) && c.CategoryLookup() == nil {
		return pricing.Zero, fmt.Errorf("category lookup: %w", ErrMissingBinding)
	}
	applier := NewTotallingApplier(ApplierConfig{
		RuleID:        a.ruleID,
		ActionID:      a.actionID,
		MaxItems:      a.maxItems,
		ActuallyApply: actuallyApply,
		Recorder:      c,
	})
	for _, it := range a.EligibleItems(c) {
		perUnit := a.perUnit(c.PriceAmount(it))
		if a.kind == KindNthProductPercent {
			applier.ApplyQuantity(it, perUnit, it.Quantity()/a.nthItem)
			continue
		}
		applier.Apply(it, perUnit)
	}
	return applier.Total(), nil
}

func (a *Action) eligible(it Item, lookup CategoryLookup) bool {
	if !it.Discountable() || it.ExcludedFromDiscount() || a.exclusions.excludesItem(it) {
		return false
	}
	switch a.kind {
	case KindCategoryAmount, KindCategoryPercent:
		return ProductInCategory(it, lookup, true, a.target, a.exclusions)
	case KindProductAmount, KindProductPercent, KindNthProductPercent:
		return ProductIs(it, true, a.target, a.exclusions)
	case KindSkuAmount, KindSkuPercent:
		return it.SkuCode() == a.target
	default:
		return false
	}
}

// perUnit never exceeds the unit price, so a line cannot go negative.
func (a *Action) perUnit(unitPrice pricing.Money) pricing.Money {
	if a.kind.Percent() {
		return unitPrice.Mul(a.value)
	}
	return pricing.Min(a.value, unitPrice)
}

func (a *Action) applyToSubtotal(actuallyApply bool, c Container) pricing.Money {
	base := EligibleSubtotal(c, a.exclusions)
	var amount pricing.Money
	if a.kind.Percent() {
		amount = pricing.Round(base.Mul(a.value))
	} else {
		amount = pricing.Round(pricing.Min(a.value, base))
	}
	// never more than what earlier subtotal discounts left over
	room := pricing.FloorAtZero(base.Sub(c.SubtotalDiscount()))
	amount = pricing.FloorAtZero(pricing.Min(amount, room))
	if actuallyApply && amount.IsPositive() {
		c.ApplySubtotalDiscount(amount, a.ruleID, a.actionID)
	}
	return amount
}

func (a *Action) applyToShipping(actuallyApply bool, c Container) (pricing.Money, error) {
	sc, ok := c.(ShippingContainer)
	if !ok {
		return pricing.Zero, fmt.Errorf("container has no shipping levels: %w", ErrMissingBinding)
	}
	selected := sc.SelectedShippingLevel()
	if a.target == AnyShippingLevel || (selected != "" && selected == a.target) {
		for _, level := range sc.ShippingLevels() {
			if level.Code != selected {
				continue
			}
			amount := a.shippingDiscount(level.Cost)
			if actuallyApply && amount.IsPositive() {
				sc.SetShippingDiscount(level.Code, amount)
				sc.RecordShippingRuleApplied(a.ruleID, a.actionID, level.Code, amount)
			}
			return amount, nil
		}
		return pricing.Zero, nil
	}
	// Not the selected level: quote the discount on matching levels without
	// counting it toward the cart.
	if actuallyApply {
		for _, level := range sc.ShippingLevels() {
			if level.Code == a.target {
				sc.SetShippingDiscount(level.Code, a.shippingDiscount(level.Cost))
			}
		}
	}
	return pricing.Zero, nil
}

func (a *Action) shippingDiscount(cost pricing.Money) pricing.Money {
	if a.kind.Percent() {
		return pricing.FloorAtZero(pricing.Round(cost.Mul(a.value)))
	}
	return pricing.FloorAtZero(pricing.Round(pricing.Min(a.value, cost)))
}
