package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-promo/internal/promotion"
)

// DBTX is the subset of pgx (pool, conn or tx) the store needs.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listActiveRules = `SELECT id, code, conditions
FROM promotion_rules
WHERE enabled
  AND (starts_at IS NULL OR starts_at <= $1)
  AND (ends_at IS NULL OR ends_at > $1)
ORDER BY priority, id`

const listRuleActions = `SELECT id, rule_id, kind, value, exceptions, available_quantity, target, nth_item, coupon_limited
FROM promotion_actions
WHERE rule_id = ANY($1)
ORDER BY rule_id, position, id`

// Store loads enabled rules and their actions from Postgres.
type Store struct {
	db  DBTX
	now func() time.Time
}

// NewStore wraps a pgx pool or connection.
func NewStore(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// ActiveRules returns the rules live now, in priority order.
func (s *Store) ActiveRules(ctx context.Context) ([]Rule, error) {
	rows, err := s.db.Query(ctx, listActiveRules, s.now())
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Rule, error) {
		var (
			r          Rule
			conditions []byte
		)
		if err := row.Scan(&r.ID, &r.Code, &conditions); err != nil {
			return Rule{}, err
		}
		if len(conditions) > 0 {
			if err := json.Unmarshal(conditions, &r.Conditions); err != nil {
				return Rule{}, fmt.Errorf("rule %d conditions: %w", r.ID, err)
			}
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	if len(rules) == 0 {
		return rules, nil
	}

	ids := make([]int64, len(rules))
	index := make(map[int64]int, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
		index[r.ID] = i
	}
	rows, err = s.db.Query(ctx, listRuleActions, ids)
	if err != nil {
		return nil, fmt.Errorf("list rule actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a      ActionSpec
			ruleID int64
			kind   string
		)
		if err := rows.Scan(&a.ID, &ruleID, &kind, &a.Value, &a.Exceptions, &a.AvailableQuantity, &a.Target, &a.NthItem, &a.CouponLimited); err != nil {
			return nil, fmt.Errorf("scan rule action: %w", err)
		}
		a.Kind = promotion.Kind(kind)
		if i, ok := index[ruleID]; ok {
			rules[i].Actions = append(rules[i].Actions, a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rule actions: %w", err)
	}
	return rules, nil
}
