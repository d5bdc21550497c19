package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/coupon"
	"github.com/noah-isme/backend-promo/internal/obs"
	"github.com/noah-isme/backend-promo/internal/pricing"
	"github.com/noah-isme/backend-promo/internal/promotion"
)

func init() {
	obs.MustRegisterDomainMetrics("promo_test", prometheus.NewRegistry())
}

func d(s string) pricing.Money {
	return decimal.RequireFromString(s)
}

func newCart() *cart.Cart {
	ct := &cart.Cart{
		ID:           "cart-1",
		CurrencyCode: "USD",
		Items: []*cart.LineItem{
			{ID: "l1", Sku: "S1", Product: "P1", Brand: "ACME", Qty: 2, UnitPrice: d("2.5")},
			{ID: "l2", Sku: "S2", Product: "P2", Qty: 2, UnitPrice: d("5")},
			{ID: "l3", Sku: "S3", Product: "P3", Qty: 2, UnitPrice: d("7.5")},
		},
		Shipping:         []cart.ShippingOption{{Code: "GROUND", Cost: d("6")}},
		SelectedShipping: "GROUND",
		CustomerEmail:    "shopper@example.com",
		PromotionCodes:   []string{"SPRING"},
	}
	ct.SetCategoryLookup(catalog.NewSnapshot(map[string][]string{
		"P1": {"SHOES|MAIN"}, "P2": {"SHOES|MAIN"}, "P3": {"SHOES|MAIN"},
	}))
	return ct
}

type recordingPublisher struct {
	calls   int
	records []promotion.ApplicationRecord
	adjust  []cart.Adjustment
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, _, _ string, records []promotion.ApplicationRecord, adjustments []cart.Adjustment) error {
	p.calls++
	p.records = append(p.records, records...)
	p.adjust = append(p.adjust, adjustments...)
	return p.err
}

type fixedQuantities struct {
	qty int
	err error
}

func (f fixedQuantities) AvailableDiscountQuantity(context.Context, int64, int, string, []string) (int, error) {
	return f.qty, f.err
}

func categoryRule(id int64, cap int) Rule {
	return Rule{
		ID:   id,
		Code: "SHOES",
		Conditions: []Condition{
			{Kind: CurrencyIs, Target: "usd"},
			{Kind: CartContainsCategory, Target: "SHOES|MAIN", Quantity: 2},
		},
		Actions: []ActionSpec{{ID: 1, Kind: promotion.KindCategoryAmount, Value: "1", AvailableQuantity: cap, Target: "SHOES|MAIN"}},
	}
}

func TestEvaluateCommitPublishesRecords(t *testing.T) {
	ct := newCart()
	pub := &recordingPublisher{}
	ev := &Evaluator{Publisher: pub, Logger: zerolog.Nop()}
	before := testutil.ToFloat64(obs.PromotionActionsTotal.WithLabelValues(string(promotion.KindCategoryAmount), "commit", "applied"))

	out, err := ev.Evaluate(context.Background(), ct, []Rule{categoryRule(10, 3)}, true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.Total.Equal(d("3")) {
		t.Fatalf("expected total 3, got %s", out.Total)
	}
	if len(out.Records) != 2 || pub.calls != 1 || len(pub.records) != 2 {
		t.Fatalf("expected 2 records published once, got %d records, %d calls", len(out.Records), pub.calls)
	}
	after := testutil.ToFloat64(obs.PromotionActionsTotal.WithLabelValues(string(promotion.KindCategoryAmount), "commit", "applied"))
	if after-before != 1 {
		t.Fatalf("expected applied counter to grow by 1, got %v", after-before)
	}
}

func TestEvaluateDryRunLeavesCartAlone(t *testing.T) {
	ct := newCart()
	pub := &recordingPublisher{}
	ev := &Evaluator{Publisher: pub, Logger: zerolog.Nop()}
	out, err := ev.Evaluate(context.Background(), ct, []Rule{categoryRule(10, 1)}, false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.DryRun || !out.Total.Equal(d("1")) {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(ct.Records()) != 0 || pub.calls != 0 {
		t.Fatalf("dry run must not record or publish")
	}
	for _, it := range ct.Items {
		if !it.DiscountAmount().IsZero() {
			t.Fatalf("dry run discounted %s", it.Sku)
		}
	}
}

func TestEvaluateSkipsRuleWhenConditionsFail(t *testing.T) {
	ct := newCart()
	rule := categoryRule(10, 0)
	rule.Conditions = append(rule.Conditions, Condition{Kind: SubtotalAtLeast, Target: "100"})
	out, err := (&Evaluator{Logger: zerolog.Nop()}).Evaluate(context.Background(), ct, []Rule{rule}, true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Skipped != SkipConditions || !out.Total.IsZero() {
		t.Fatalf("unexpected results %+v", out.Results)
	}
}

func TestEvaluateContinuesPastBadAction(t *testing.T) {
	ct := newCart()
	rule := Rule{
		ID: 20,
		Actions: []ActionSpec{
			{ID: 1, Kind: promotion.KindProductPercent, Value: "abc", Target: "P1"},
			{ID: 2, Kind: promotion.KindSubtotalAmount, Value: "5"},
		},
	}
	out, err := (&Evaluator{Logger: zerolog.Nop()}).Evaluate(context.Background(), ct, []Rule{rule}, true)
	if !errors.Is(err, promotion.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var cfgErr *promotion.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.ActionID != 1 {
		t.Fatalf("expected ConfigError for action 1, got %v", err)
	}
	if len(out.Results) != 2 || out.Results[0].Skipped != SkipError || !out.Results[1].Amount.Equal(d("5")) {
		t.Fatalf("unexpected results %+v", out.Results)
	}
	if !ct.SubtotalDiscount().Equal(d("5")) {
		t.Fatalf("expected second action applied, got %s", ct.SubtotalDiscount())
	}
}

func TestEvaluateCouponLimitedQuantity(t *testing.T) {
	rule := categoryRule(30, 1)
	rule.Actions[0].CouponLimited = true

	out, err := (&Evaluator{Quantities: fixedQuantities{qty: 4}, Logger: zerolog.Nop()}).
		Evaluate(context.Background(), newCart(), []Rule{rule}, false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.Total.Equal(d("4")) {
		t.Fatalf("expected cap raised to 4 units, got %s", out.Total)
	}

	out, err = (&Evaluator{Quantities: fixedQuantities{err: coupon.ErrNoUsesRemaining}, Logger: zerolog.Nop()}).
		Evaluate(context.Background(), newCart(), []Rule{rule}, false)
	if err != nil {
		t.Fatalf("exhausted coupons are not an error: %v", err)
	}
	if out.Results[0].Skipped != SkipCouponExhausted || !out.Total.IsZero() {
		t.Fatalf("unexpected result %+v", out.Results[0])
	}
}

func TestEvaluatePublishFailureIsReported(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("queue down")}
	_, err := (&Evaluator{Publisher: pub, Logger: zerolog.Nop()}).
		Evaluate(context.Background(), newCart(), []Rule{categoryRule(10, 0)}, true)
	if !errors.Is(err, ErrPublish) || pub.calls != 1 {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestEvaluateShippingAndCouponCondition(t *testing.T) {
	ct := newCart()
	rule := Rule{
		ID:         40,
		Conditions: []Condition{{Kind: CouponCodeEntered, Target: "spring"}, {Kind: CartContainsBrand, Target: promotion.AnyBrand}},
		Actions:    []ActionSpec{{ID: 1, Kind: promotion.KindShippingPercent, Value: "50", Target: promotion.AnyShippingLevel}},
	}
	pub := &recordingPublisher{}
	out, err := (&Evaluator{Publisher: pub, Logger: zerolog.Nop()}).Evaluate(context.Background(), ct, []Rule{rule}, true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.Total.Equal(d("3")) || len(pub.adjust) != 1 || pub.adjust[0].Target != cart.TargetShipping {
		t.Fatalf("unexpected outcome %+v / %+v", out, pub.adjust)
	}
}

func TestConditionMatchesErrors(t *testing.T) {
	ct := newCart()
	cases := []Condition{
		{Kind: SubtotalAtLeast, Target: "lots"},
		{Kind: CartContainsSku, Target: "S1", Quantifier: "MOST"},
		{Kind: "weather_is", Target: "sunny"},
	}
	for _, c := range cases {
		if _, err := c.Matches(ct); !errors.Is(err, promotion.ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", c.Kind, err)
		}
	}
	ct.SetCategoryLookup(nil)
	if _, err := (Condition{Kind: CartContainsCategory, Target: "SHOES|MAIN"}).Matches(ct); !errors.Is(err, promotion.ErrMissingBinding) {
		t.Fatalf("expected ErrMissingBinding, got %v", err)
	}
}

func TestConditionQuantifiers(t *testing.T) {
	ct := newCart()
	exact := Condition{Kind: CartContainsProduct, Target: "P2", Quantifier: "EXACTLY", Quantity: 2}
	if ok, err := exact.Matches(ct); err != nil || !ok {
		t.Fatalf("expected exact match, got %v %v", ok, err)
	}
	exact.Quantity = 3
	if ok, _ := exact.Matches(ct); ok {
		t.Fatalf("expected exact mismatch")
	}
	none := Condition{Kind: CartContainsProduct, Target: "P-ABSENT", Quantifier: "EXACTLY"}
	if ok, err := none.Matches(ct); err != nil || !ok {
		t.Fatalf("EXACTLY 0 should match a product the cart lacks, got %v %v", ok, err)
	}
	none.Target = "P2"
	if ok, _ := none.Matches(ct); ok {
		t.Fatalf("EXACTLY 0 must not match a product the cart holds")
	}
	atLeast := Condition{Kind: CartContainsProduct, Target: "P-ABSENT"}
	if ok, _ := atLeast.Matches(ct); ok {
		t.Fatalf("unset quantity defaults to at least one unit")
	}
	anySku := Condition{Kind: CartContainsAnySku, Quantity: 6, Exceptions: "SkuCodes:S3"}
	if ok, _ := anySku.Matches(ct); ok {
		t.Fatalf("excluded sku must not count")
	}
}
