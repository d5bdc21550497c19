package coupon

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

// UsageType mirrors how a coupon configuration limits redemptions.
type UsageType string

const (
	LimitPerCoupon        UsageType = "LIMIT_PER_COUPON"
	LimitPerAnyUser       UsageType = "LIMIT_PER_ANY_USER"
	LimitPerSpecifiedUser UsageType = "LIMIT_PER_SPECIFIED_USER"
)

// ErrNoUsesRemaining is returned when the shopper's coupons for a rule are
// used up. The rule's discount must not be applied.
var ErrNoUsesRemaining = errors.New("coupon: no uses remaining")

// Config is the coupon configuration attached to a promotion rule.
type Config struct {
	RuleCode         string
	UsageType        UsageType
	UsageLimit       int
	MultiUsePerOrder bool
}

// Unlimited reports whether the coupons can be used without limit.
func (c Config) Unlimited() bool {
	return c.UsageLimit <= 0
}

// Usage is how often one coupon has been used by a customer.
type Usage struct {
	CouponCode string
	UseCount   int
}

// Querier captures the database methods required by the coupon service.
type Querier interface {
	FindRuleCode(ctx context.Context, ruleID int64) (string, error)
	FindConfigByRuleCode(ctx context.Context, ruleCode string) (Config, error)
	FindUsagesByRuleCodeAndEmail(ctx context.Context, ruleCode, email string) ([]Usage, error)
}

// Service derives coupon-limited discount quantities.
type Service struct {
	Q Querier
}

// AvailableDiscountQuantity scales perCoupon by the coupon uses the customer
// still has for the rule. perCoupon is returned unchanged when the rule has
// no coupon config, coupons are unlimited or limited per coupon, no customer
// email is known, or the customer has no recorded usage yet. A result of zero
// is reported as ErrNoUsesRemaining since zero means "no cap" to the engine.
func (s *Service) AvailableDiscountQuantity(ctx context.Context, ruleID int64, perCoupon int, email string, cartCodes []string) (int, error) {
	if s == nil || s.Q == nil {
		return 0, errors.New("coupon service not configured")
	}
	email = strings.TrimSpace(email)
	if perCoupon <= 0 || email == "" {
		return perCoupon, nil
	}
	ruleCode, err := s.Q.FindRuleCode(ctx, ruleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return perCoupon, nil
		}
		return 0, err
	}
	cfg, err := s.Q.FindConfigByRuleCode(ctx, ruleCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return perCoupon, nil
		}
		return 0, err
	}
	if cfg.UsageType == LimitPerCoupon || cfg.Unlimited() {
		return perCoupon, nil
	}

	usages, err := s.Q.FindUsagesByRuleCodeAndEmail(ctx, ruleCode, email)
	if err != nil {
		return 0, err
	}
	if len(usages) == 0 {
		return perCoupon, nil
	}

	inCart := make(map[string]struct{}, len(cartCodes))
	for _, code := range cartCodes {
		inCart[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}
	remaining := 0
	for _, u := range usages {
		if _, ok := inCart[strings.ToUpper(u.CouponCode)]; !ok {
			continue
		}
		left := cfg.UsageLimit - u.UseCount
		if cfg.MultiUsePerOrder {
			if left > 0 {
				remaining += left
			}
			continue
		}
		if left > 0 {
			remaining++
		}
	}
	if remaining == 0 {
		return 0, ErrNoUsesRemaining
	}
	return perCoupon * remaining, nil
}
