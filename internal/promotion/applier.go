package promotion

import "github.com/noah-isme/backend-promo/internal/pricing"

// ApplierConfig configures one allocation run.
type ApplierConfig struct {
	RuleID   int64
	ActionID int64
	// MaxItems caps the number of units discounted; 0 means unlimited.
	MaxItems      int
	ActuallyApply bool
	Recorder      Recorder
}

// TotallingApplier distributes a per-unit discount across an ordered sequence
// of items, honoring the unit cap, and accumulates the total. Its state is
// scoped to a single action application and must not be shared.
type TotallingApplier struct {
	cfg       ApplierConfig
	remaining int
	total     pricing.Money
}

// NewTotallingApplier returns an applier with a full cap and a zero total.
func NewTotallingApplier(cfg ApplierConfig) *TotallingApplier {
	if cfg.MaxItems < 0 {
		cfg.MaxItems = 0
	}
	return &TotallingApplier{cfg: cfg, remaining: cfg.MaxItems, total: pricing.Zero}
}

// Apply discounts every unit of the item, subject to the remaining cap.
func (a *TotallingApplier) Apply(item Item, perUnit pricing.Money) {
	a.ApplyQuantity(item, perUnit, item.Quantity())
}

// ApplyQuantity discounts up to qty units of the item, subject to the
// remaining cap. qty is clamped to the item's quantity.
func (a *TotallingApplier) ApplyQuantity(item Item, perUnit pricing.Money, qty int) {
	if qty > item.Quantity() {
		qty = item.Quantity()
	}
	if qty < 0 {
		qty = 0
	}
	if a.cfg.MaxItems > 0 {
		qty = min(a.remaining, qty)
		a.remaining -= qty
	}
	if qty == 0 {
		// cap exhausted or nothing to discount; keep iterating for later items
		return
	}

	line := pricing.FloorAtZero(pricing.Round(perUnit.Mul(pricing.Quantity(qty))))
	// never more than the line still carries
	line = pricing.Min(line, item.Total())
	a.total = a.total.Add(line)

	if !a.cfg.ActuallyApply || !line.IsPositive() {
		return
	}
	item.ApplyDiscount(line)
	if a.cfg.Recorder != nil {
		a.cfg.Recorder.RecordRuleApplied(a.cfg.RuleID, a.cfg.ActionID, item, line, qty)
	}
}

// Total returns the discount accumulated so far.
func (a *TotallingApplier) Total() pricing.Money {
	return a.total
}

// Remaining returns the units still available under the cap. It is always 0
// for uncapped appliers.
func (a *TotallingApplier) Remaining() int {
	return a.remaining
}

// MaxItems returns the configured cap.
func (a *TotallingApplier) MaxItems() int {
	return a.cfg.MaxItems
}
