package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/coupon"
	"github.com/noah-isme/backend-promo/internal/obs"
	"github.com/noah-isme/backend-promo/internal/pricing"
	"github.com/noah-isme/backend-promo/internal/promotion"
)

// Skip reasons reported on results for actions that did not run.
const (
	SkipConditions      = "conditions_not_met"
	SkipCouponExhausted = "coupon_exhausted"
	SkipError           = "error"
)

// ErrPublish marks a commit whose application records could not be handed
// to the ledger.
var ErrPublish = errors.New("rules: publish application records")

// QuantityResolver derives coupon-limited discount quantities.
type QuantityResolver interface {
	AvailableDiscountQuantity(ctx context.Context, ruleID int64, perCoupon int, email string, cartCodes []string) (int, error)
}

// Publisher receives the application log produced by a commit run.
type Publisher interface {
	Publish(ctx context.Context, cartID, currency string, records []promotion.ApplicationRecord, adjustments []cart.Adjustment) error
}

// Result is the outcome of one fired action.
type Result struct {
	RuleID   int64          `json:"ruleId"`
	ActionID int64          `json:"actionId"`
	Kind     promotion.Kind `json:"kind"`
	Amount   pricing.Money  `json:"amount"`
	Skipped  string         `json:"skipped,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Outcome summarises an evaluation.
type Outcome struct {
	DryRun      bool                          `json:"dryRun"`
	Total       pricing.Money                 `json:"total"`
	Results     []Result                      `json:"results"`
	Records     []promotion.ApplicationRecord `json:"records,omitempty"`
	Adjustments []cart.Adjustment             `json:"adjustments,omitempty"`
}

// Evaluator gates rules on their conditions and applies their actions to a
// cart in order.
type Evaluator struct {
	Quantities QuantityResolver
	Publisher  Publisher
	Logger     zerolog.Logger
	Tracer     trace.Tracer
}

func (e *Evaluator) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return otel.Tracer("promotion.rules")
}

// Evaluate runs every rule against the cart. With actuallyApply false the
// cart is left untouched and only the amounts are reported. A failing action
// never stops the others; their errors are joined into the returned error.
func (e *Evaluator) Evaluate(ctx context.Context, ct *cart.Cart, rules []Rule, actuallyApply bool) (Outcome, error) {
	outcome := Outcome{DryRun: !actuallyApply, Total: pricing.Zero, Results: make([]Result, 0)}
	if ct == nil {
		return outcome, promotion.ErrMissingBinding
	}
	ctx, span := e.tracer().Start(ctx, "promotion.evaluate", trace.WithAttributes(
		attribute.String("cart.id", ct.ID),
		attribute.Int("rules.count", len(rules)),
		attribute.Bool("dry_run", !actuallyApply),
	))
	defer span.End()

	recordsBefore := len(ct.Records())
	adjustmentsBefore := len(ct.Adjustments())

	var errs []error
	for _, rule := range rules {
		results, err := e.evaluateRule(ctx, ct, rule, actuallyApply)
		outcome.Results = append(outcome.Results, results...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range outcome.Results {
		outcome.Total = outcome.Total.Add(r.Amount)
	}

	if actuallyApply {
		outcome.Records = ct.Records()[recordsBefore:]
		outcome.Adjustments = ct.Adjustments()[adjustmentsBefore:]
		if obs.PromotionRecordsTotal != nil {
			obs.PromotionRecordsTotal.Add(float64(len(outcome.Records)))
		}
		if err := e.publish(ctx, ct, outcome); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "promotion evaluation had errors")
	}
	span.SetAttributes(attribute.String("discount.total", outcome.Total.StringFixed(pricing.Scale)))
	return outcome, err
}

func (e *Evaluator) evaluateRule(ctx context.Context, ct *cart.Cart, rule Rule, actuallyApply bool) ([]Result, error) {
	ctx, span := e.tracer().Start(ctx, "promotion.rule", trace.WithAttributes(
		attribute.Int64("rule.id", rule.ID),
		attribute.String("rule.code", rule.Code),
	))
	defer span.End()

	firings := rule.Firings()
	results := make([]Result, 0, len(firings))

	ok, err := e.conditionsMet(ct, rule)
	if err != nil || !ok {
		reason := SkipConditions
		if err != nil {
			reason = SkipError
			span.RecordError(err)
			e.Logger.Warn().Err(err).Int64("rule_id", rule.ID).Msg("rule condition invalid")
		}
		for _, f := range firings {
			res := Result{RuleID: f.RuleID, ActionID: f.ActionID, Kind: f.Kind, Amount: pricing.Zero, Skipped: reason}
			if err != nil {
				res.Error = err.Error()
			}
			results = append(results, res)
		}
		span.SetAttributes(attribute.Bool("rule.fired", false))
		return results, err
	}
	span.SetAttributes(attribute.Bool("rule.fired", true))

	var errs []error
	for _, f := range firings {
		res, err := e.fire(ctx, ct, f, actuallyApply)
		results = append(results, res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

func (e *Evaluator) conditionsMet(ct *cart.Cart, rule Rule) (bool, error) {
	for _, cond := range rule.Conditions {
		ok, err := cond.Matches(ct)
		if err != nil {
			return false, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) fire(ctx context.Context, ct *cart.Cart, f Firing, actuallyApply bool) (Result, error) {
	res := Result{RuleID: f.RuleID, ActionID: f.ActionID, Kind: f.Kind, Amount: pricing.Zero}
	mode := "commit"
	if !actuallyApply {
		mode = "dry_run"
	}
	log := e.Logger.With().Int64("rule_id", f.RuleID).Int64("action_id", f.ActionID).Str("kind", string(f.Kind)).Logger()

	params := f.Params()
	if f.CouponLimited && e.Quantities != nil {
		qty, err := e.Quantities.AvailableDiscountQuantity(ctx, f.RuleID, params.AvailableQuantity, ct.CustomerEmail, ct.PromotionCodes)
		switch {
		case errors.Is(err, coupon.ErrNoUsesRemaining):
			res.Skipped = SkipCouponExhausted
			countAction(f.Kind, mode, "skipped")
			log.Debug().Msg("coupon uses exhausted")
			return res, nil
		case err != nil:
			res.Skipped, res.Error = SkipError, err.Error()
			countAction(f.Kind, mode, "error")
			return res, fmt.Errorf("rule %d action %d: coupon quantity: %w", f.RuleID, f.ActionID, err)
		}
		params.AvailableQuantity = qty
	}

	action, err := promotion.NewAction(params)
	if err != nil {
		res.Skipped, res.Error = SkipError, err.Error()
		countAction(f.Kind, mode, "config_error")
		log.Warn().Err(err).Msg("discount action misconfigured")
		return res, err
	}
	amount, err := action.Apply(actuallyApply, ct)
	if err != nil {
		res.Skipped, res.Error = SkipError, err.Error()
		countAction(f.Kind, mode, "error")
		log.Error().Err(err).Msg("discount action failed")
		return res, fmt.Errorf("rule %d action %d: %w", f.RuleID, f.ActionID, err)
	}
	res.Amount = amount

	result := "zero"
	if amount.IsPositive() {
		result = "applied"
		if obs.PromotionDiscountAmount != nil {
			obs.PromotionDiscountAmount.WithLabelValues(string(f.Kind)).Observe(amount.InexactFloat64())
		}
	}
	countAction(f.Kind, mode, result)
	log.Debug().Str("amount", amount.StringFixed(pricing.Scale)).Bool("dry_run", !actuallyApply).Msg("discount action applied")
	return res, nil
}

func (e *Evaluator) publish(ctx context.Context, ct *cart.Cart, outcome Outcome) error {
	if e.Publisher == nil || (len(outcome.Records) == 0 && len(outcome.Adjustments) == 0) {
		return nil
	}
	if err := e.Publisher.Publish(ctx, ct.ID, ct.CurrencyCode, outcome.Records, outcome.Adjustments); err != nil {
		e.Logger.Error().Err(err).Str("cart_id", ct.ID).Msg("publish application records")
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return nil
}

func countAction(kind promotion.Kind, mode, result string) {
	if obs.PromotionActionsTotal == nil {
		return
	}
	obs.PromotionActionsTotal.WithLabelValues(string(kind), mode, result).Inc()
}
