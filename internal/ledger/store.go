package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/noah-isme/backend-promo/internal/pricing"
)

// ErrStoreUnavailable indicates the ledger database is not configured.
var ErrStoreUnavailable = errors.New("ledger: store unavailable")

const insertApplication = `INSERT INTO promotion_applications
    (batch_id, cart_id, currency, rule_id, action_id, target, sku_code, product_code, level_code, quantity, amount, applied_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (batch_id, rule_id, action_id, target, sku_code, level_code) DO NOTHING`

// Store persists application batches through database/sql.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	return db, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save writes every entry of the batch in one transaction. Saving the same
// batch twice is a no-op, so redelivered tasks are safe.
func (s *Store) Save(ctx context.Context, b Batch) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	if len(b.Entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertApplication)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range b.Entries {
		_, err := stmt.ExecContext(ctx,
			b.ID.String(), b.CartID, b.Currency, e.RuleID, e.ActionID, e.Target,
			e.SkuCode, e.ProductCode, e.Level, e.Quantity, e.Amount.StringFixed(pricing.Scale), b.AppliedAt,
		)
		if err != nil {
			return fmt.Errorf("insert application rule %d action %d: %w", e.RuleID, e.ActionID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// Ping reports whether the ledger database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	return s.db.PingContext(ctx)
}
