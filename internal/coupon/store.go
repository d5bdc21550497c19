package coupon

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// DBTX is the subset of pgx (pool, conn or tx) the store needs.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const findRuleCode = `SELECT code FROM promotion_rules WHERE id = $1`

const findConfigByRuleCode = `SELECT rule_code, usage_type, usage_limit, multi_use_per_order
FROM coupon_configs
WHERE rule_code = $1`

const findUsagesByRuleCodeAndEmail = `SELECT c.code, u.use_count
FROM coupon_usages u
JOIN coupons c ON c.id = u.coupon_id
JOIN coupon_configs cc ON cc.id = c.config_id
WHERE cc.rule_code = $1 AND lower(u.customer_email) = lower($2)`

// Store implements Querier on Postgres.
type Store struct {
	db DBTX
}

// NewStore wraps a pgx pool or connection.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) FindRuleCode(ctx context.Context, ruleID int64) (string, error) {
	var code string
	err := s.db.QueryRow(ctx, findRuleCode, ruleID).Scan(&code)
	return code, err
}

func (s *Store) FindConfigByRuleCode(ctx context.Context, ruleCode string) (Config, error) {
	var (
		cfg       Config
		usageType string
	)
	err := s.db.QueryRow(ctx, findConfigByRuleCode, ruleCode).
		Scan(&cfg.RuleCode, &usageType, &cfg.UsageLimit, &cfg.MultiUsePerOrder)
	cfg.UsageType = UsageType(usageType)
	return cfg, err
}

func (s *Store) FindUsagesByRuleCodeAndEmail(ctx context.Context, ruleCode, email string) ([]Usage, error) {
	rows, err := s.db.Query(ctx, findUsagesByRuleCodeAndEmail, ruleCode, email)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Usage, error) {
		var u Usage
		err := row.Scan(&u.CouponCode, &u.UseCount)
		return u, err
	})
}
