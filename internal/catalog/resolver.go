package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/resilience"
)

// ErrUnavailable is returned when the category source is refusing requests.
var ErrUnavailable = errors.New("catalog: category source unavailable")

// TreeLoader loads the category hierarchy for a set of products.
type TreeLoader interface {
	LoadTree(ctx context.Context, productCodes []string) (*Tree, error)
}

// Resolver builds category snapshots for carts, reading through the cache.
type Resolver struct {
	Loader  TreeLoader
	Cache   *Cache
	Breaker *resilience.Breaker
	// Attempts and Backoff bound retries of a failed load.
	Attempts int
	Backoff  time.Duration
	Logger   zerolog.Logger
}

// Resolve returns a snapshot covering every product code. Cache failures are
// logged and fall back to the loader.
func (r *Resolver) Resolve(ctx context.Context, productCodes []string) (Snapshot, error) {
	cached, err := r.Cache.GetMemberships(ctx, productCodes)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("catalog cache read failed")
	}
	missing := make([]string, 0, len(productCodes))
	for _, code := range productCodes {
		if _, ok := cached[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) == 0 {
		return NewSnapshot(cached), nil
	}
	if r.Loader == nil {
		return Snapshot{}, errors.New("catalog: tree loader not configured")
	}

	var tree *Tree
	call := resilience.Call{Breaker: r.Breaker, MaxAttempts: r.Attempts, BaseBackoff: r.Backoff, Jitter: 0.2}
	err = call.Do(ctx, func(ctx context.Context) error {
		loaded, err := r.Loader.LoadTree(ctx, missing)
		if err != nil {
			return err
		}
		tree = loaded
		return nil
	})
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return Snapshot{}, ErrUnavailable
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load category tree: %w", err)
	}

	loaded := make(map[string][]string, len(missing))
	for _, code := range missing {
		ids := tree.Memberships(code)
		loaded[code] = ids
		cached[code] = ids
	}
	if err := r.Cache.SetMemberships(ctx, loaded); err != nil {
		r.Logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	r.Logger.Debug().Int("cached", len(productCodes)-len(missing)).Int("loaded", len(missing)).Msg("category snapshot resolved")
	return NewSnapshot(cached), nil
}
