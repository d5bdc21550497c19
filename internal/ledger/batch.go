package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/pricing"
	"github.com/noah-isme/backend-promo/internal/promotion"
)

// TargetItem marks an entry recorded against a cart line.
const TargetItem = "item"

// Entry is one persisted application of a discount action.
type Entry struct {
	RuleID      int64         `json:"rule_id"`
	ActionID    int64         `json:"action_id"`
	Target      string        `json:"target"`
	SkuCode     string        `json:"sku_code,omitempty"`
	ProductCode string        `json:"product_code,omitempty"`
	Level       string        `json:"level,omitempty"`
	Quantity    int           `json:"quantity,omitempty"`
	Amount      pricing.Money `json:"amount"`
}

// Batch groups the entries produced by one commit evaluation of a cart.
type Batch struct {
	ID        uuid.UUID `json:"id"`
	CartID    string    `json:"cart_id"`
	Currency  string    `json:"currency"`
	AppliedAt time.Time `json:"applied_at"`
	Entries   []Entry   `json:"entries"`
}

// NewBatch flattens item records and cart adjustments into one batch.
func NewBatch(cartID, currency string, records []promotion.ApplicationRecord, adjustments []cart.Adjustment, at time.Time) Batch {
	b := Batch{
		ID:        uuid.New(),
		CartID:    cartID,
		Currency:  currency,
		AppliedAt: at.UTC(),
		Entries:   make([]Entry, 0, len(records)+len(adjustments)),
	}
	for _, r := range records {
		b.Entries = append(b.Entries, Entry{
			RuleID:      r.RuleID,
			ActionID:    r.ActionID,
			Target:      TargetItem,
			SkuCode:     r.SkuCode,
			ProductCode: r.ProductCode,
			Quantity:    r.Quantity,
			Amount:      r.Amount,
		})
	}
	for _, a := range adjustments {
		b.Entries = append(b.Entries, Entry{
			RuleID:   a.RuleID,
			ActionID: a.ActionID,
			Target:   a.Target,
			Level:    a.Level,
			Amount:   a.Amount,
		})
	}
	return b
}

// Total sums the batch's entry amounts.
func (b Batch) Total() pricing.Money {
	total := pricing.Zero
	for _, e := range b.Entries {
		total = total.Add(e.Amount)
	}
	return total
}
