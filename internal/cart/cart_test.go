package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-promo/internal/pricing"
	"github.com/noah-isme/backend-promo/internal/promotion"
)

func d(s string) pricing.Money {
	return decimal.RequireFromString(s)
}

func sampleCart() *Cart {
	return &Cart{
		ID:           "c1",
		CurrencyCode: "USD",
		Items: []*LineItem{
			{ID: "l1", Sku: "S1", Product: "P1", Qty: 2, UnitPrice: d("15")},
			{ID: "l2", Sku: "S2", Product: "P2", Qty: 1, UnitPrice: d("10")},
			{ID: "l3", Sku: "GC", Product: "GIFT", Qty: 1, UnitPrice: d("25"), GiftCertificate: true},
			{ID: "l4", Sku: "S3", Product: "P1", Qty: 1, UnitPrice: d("5"), NoCartPromotion: true},
		},
		Shipping: []ShippingOption{
			{Code: "GROUND", Cost: d("8")},
			{Code: "EXPRESS", Cost: d("20")},
		},
		SelectedShipping: "GROUND",
	}
}

func TestItemsLowestToHighestPriceFiltersAndSorts(t *testing.T) {
	c := sampleCart()
	items := c.ItemsLowestToHighestPrice()
	if len(items) != 2 {
		t.Fatalf("expected 2 promotable items, got %d", len(items))
	}
	if items[0].SkuCode() != "S2" || items[1].SkuCode() != "S1" {
		t.Fatalf("unexpected order %s, %s", items[0].SkuCode(), items[1].SkuCode())
	}
}

func TestDiscountEligibleSubtotalSkipsGiftCertificates(t *testing.T) {
	if got := sampleCart().DiscountEligibleSubtotal(); !got.Equal(d("45")) {
		t.Fatalf("expected 45, got %s", got)
	}
}

func TestPriceAmountIsUnitOfLineTotal(t *testing.T) {
	c := sampleCart()
	if got := c.PriceAmount(c.Items[0]); !got.Equal(d("15")) {
		t.Fatalf("expected 15, got %s", got)
	}
}

func TestApplyDiscountCappedAtLineTotal(t *testing.T) {
	li := &LineItem{Sku: "S", Product: "P", Qty: 1, UnitPrice: d("3")}
	li.ApplyDiscount(d("2"))
	li.ApplyDiscount(d("2"))
	if !li.DiscountAmount().Equal(d("3")) {
		t.Fatalf("expected discount capped at 3, got %s", li.DiscountAmount())
	}
}

func TestTotalIsNetOfItemDiscounts(t *testing.T) {
	li := &LineItem{Sku: "S", Product: "P", Qty: 2, UnitPrice: d("5")}
	li.ApplyDiscount(d("3"))
	if !li.Total().Equal(d("7")) || !li.GrossTotal().Equal(d("10")) {
		t.Fatalf("expected current 7 of gross 10, got %s of %s", li.Total(), li.GrossTotal())
	}
	li.ApplyDiscount(d("20"))
	if !li.Total().IsZero() || !li.DiscountAmount().Equal(d("10")) {
		t.Fatalf("expected fully discounted line, got total %s discount %s", li.Total(), li.DiscountAmount())
	}
}

func TestLowestToHighestUsesCurrentTotals(t *testing.T) {
	c := &Cart{ID: "c", CurrencyCode: "USD", Items: []*LineItem{
		{Sku: "SA", Product: "PA", Qty: 1, UnitPrice: d("10")},
		{Sku: "SB", Product: "PB", Qty: 1, UnitPrice: d("5")},
	}}
	c.Items[0].ApplyDiscount(d("8"))

	items := c.ItemsLowestToHighestPrice()
	if items[0].SkuCode() != "SA" {
		t.Fatalf("expected SA (2 left) before SB (5), got %s first", items[0].SkuCode())
	}
	if got := c.PriceAmount(c.Items[0]); !got.Equal(d("2")) {
		t.Fatalf("expected current unit price 2, got %s", got)
	}
}

func TestStackedAmountActionsRecordWhatTheLineReceived(t *testing.T) {
	c := &Cart{ID: "c", CurrencyCode: "USD", Items: []*LineItem{
		{Sku: "S", Product: "P", Qty: 1, UnitPrice: d("10")},
	}}
	returned := pricing.Zero
	for id := int64(1); id <= 2; id++ {
		a, err := promotion.NewAction(promotion.ActionParams{RuleID: id, ActionID: 1, Kind: promotion.KindProductAmount, Value: "10", Target: "P"})
		if err != nil {
			t.Fatalf("new action: %v", err)
		}
		got, err := a.Apply(true, c)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		returned = returned.Add(got)
	}

	recorded := pricing.Zero
	for _, rec := range c.Records() {
		recorded = recorded.Add(rec.Amount)
	}
	item := c.Items[0].DiscountAmount()
	if !returned.Equal(d("10")) || !recorded.Equal(d("10")) || !item.Equal(d("10")) {
		t.Fatalf("returned=%s records=%s item=%s", returned, recorded, item)
	}
	if ids := c.AppliedRuleIDs(); len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("second rule found nothing left and must not be listed, got %v", ids)
	}
	if s := c.Summary(); !s.Subtotal.Equal(d("10")) || !s.Discount.Equal(d("10")) || !s.Lines[0].Net.IsZero() {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestActionsAgainstCart(t *testing.T) {
	c := sampleCart()
	product, err := promotion.NewAction(promotion.ActionParams{RuleID: 1, ActionID: 1, Kind: promotion.KindProductPercent, Value: "10", Target: "P1"})
	if err != nil {
		t.Fatalf("new action: %v", err)
	}
	subtotal, err := promotion.NewAction(promotion.ActionParams{RuleID: 2, ActionID: 5, Kind: promotion.KindSubtotalAmount, Value: "10"})
	if err != nil {
		t.Fatalf("new action: %v", err)
	}
	shipping, err := promotion.NewAction(promotion.ActionParams{RuleID: 3, ActionID: 7, Kind: promotion.KindShippingPercent, Value: "50", Target: promotion.AnyShippingLevel})
	if err != nil {
		t.Fatalf("new action: %v", err)
	}
	for _, a := range []*promotion.Action{product, subtotal, shipping} {
		if _, err := a.Apply(true, c); err != nil {
			t.Fatalf("apply %s: %v", a.Kind(), err)
		}
	}

	records := c.Records()
	if len(records) != 1 || records[0].SkuCode != "S1" || !records[0].Amount.Equal(d("3")) {
		t.Fatalf("unexpected records %+v", records)
	}
	if adj := c.Adjustments(); len(adj) != 2 || adj[0].Target != TargetSubtotal || adj[1].Level != "GROUND" {
		t.Fatalf("unexpected adjustments %+v", adj)
	}
	if ids := c.AppliedRuleIDs(); len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Fatalf("unexpected applied rules %v", ids)
	}

	s := c.Summary()
	// 30 + 10 + 25 + 5
	if !s.Subtotal.Equal(d("70")) {
		t.Fatalf("expected subtotal 70, got %s", s.Subtotal)
	}
	if !s.Discount.Equal(d("13")) {
		t.Fatalf("expected discount 13, got %s", s.Discount)
	}
	if !s.Shipping.Equal(d("4")) || !s.ShippingDiscount.Equal(d("4")) {
		t.Fatalf("unexpected shipping %s / %s", s.Shipping, s.ShippingDiscount)
	}
	if !s.Total.Equal(d("61")) {
		t.Fatalf("expected total 61, got %s", s.Total)
	}
	share := pricing.Zero
	for _, l := range s.Lines {
		share = share.Add(l.SubtotalShare)
	}
	if !share.Equal(d("10")) {
		t.Fatalf("expected apportioned shares to sum to 10, got %s", share)
	}
	if !s.Lines[2].SubtotalShare.IsZero() {
		t.Fatalf("gift certificate must not carry subtotal discount")
	}
}

func TestValidate(t *testing.T) {
	c := sampleCart()
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.SelectedShipping = "DRONE"
	if err := c.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	c = sampleCart()
	c.Items[0].Qty = -1
	if err := c.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProductCodesDistinct(t *testing.T) {
	codes := sampleCart().ProductCodes()
	if len(codes) != 3 || codes[0] != "P1" || codes[2] != "GIFT" {
		t.Fatalf("unexpected codes %v", codes)
	}
}
