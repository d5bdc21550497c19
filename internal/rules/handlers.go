package rules

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/lock"
	"github.com/noah-isme/backend-promo/internal/obs"
)

// RuleSource lists the rules to evaluate when a request carries none.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]Rule, error)
}

// CategoryResolver builds the category snapshot for a cart's products.
type CategoryResolver interface {
	Resolve(ctx context.Context, productCodes []string) (catalog.Snapshot, error)
}

// CartLocker serialises commit evaluations per cart.
type CartLocker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Handler exposes the preview and apply endpoints.
type Handler struct {
	Rules      RuleSource
	Categories CategoryResolver
	Evaluator  *Evaluator
	Locker     CartLocker
	LockTTL    time.Duration
	Logger     zerolog.Logger
}

type evaluateRequest struct {
	Cart *cart.Cart `json:"cart" validate:"required"`
	// Rules overrides the stored rules, mainly for merchandisers trying a
	// promotion before enabling it.
	Rules []Rule `json:"rules,omitempty" validate:"omitempty,dive"`
}

type evaluateResponse struct {
	Outcome
	Summary      cart.Summary `json:"summary"`
	AppliedRules []int64      `json:"appliedRules"`
	Errors       []string     `json:"errors,omitempty"`
}

// Preview computes the discounts a cart would receive without recording them.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	h.evaluate(w, r, false)
}

// Apply discounts the cart and publishes the application records.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	h.evaluate(w, r, true)
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request, commit bool) {
	resp, err := h.run(w, r, commit)
	if err != nil {
		var appErr *common.AppError
		if !errors.As(err, &appErr) || appErr.HTTPStatus >= http.StatusInternalServerError {
			h.Logger.Error().Err(err).Bool("commit", commit).Msg("evaluate promotions")
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}

func unavailable(code, message string, err error) error {
	return common.NewAppError(code, message, http.StatusServiceUnavailable, err)
}

func invalidCart(message string, err error) error {
	return common.NewAppError("INVALID_CART", message, http.StatusUnprocessableEntity, err)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, commit bool) (*evaluateResponse, error) {
	if h.Evaluator == nil {
		return nil, errors.New("evaluator not configured")
	}
	ctx := r.Context()
	var req evaluateRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	ct := req.Cart
	if err := ct.Validate(); err != nil {
		return nil, invalidCart(err.Error(), err)
	}
	if commit && ct.ID == "" {
		return nil, invalidCart("cart id is required to apply promotions", nil)
	}

	rules := req.Rules
	if len(rules) == 0 && h.Rules != nil {
		stored, err := h.Rules.ActiveRules(ctx)
		if err != nil {
			return nil, unavailable("RULES_UNAVAILABLE", "promotion rules unavailable", err)
		}
		rules = stored
	}
	obs.AnnotateCart(ctx, ct.ID, len(rules))

	if h.Categories != nil && len(ct.Items) > 0 {
		snap, err := h.Categories.Resolve(ctx, ct.ProductCodes())
		if err != nil {
			return nil, unavailable("CATALOG_UNAVAILABLE", "category data unavailable", err)
		}
		ct.SetCategoryLookup(snap)
	}

	var (
		outcome Outcome
		evalErr error
	)
	run := func(ctx context.Context) error {
		outcome, evalErr = h.Evaluator.Evaluate(ctx, ct, rules, commit)
		return nil
	}
	if commit && h.Locker != nil {
		if err := h.Locker.WithLock(ctx, lock.CartKey(ct.ID), h.LockTTL, run); err != nil {
			if errors.Is(err, lock.ErrBusy) {
				return nil, common.NewAppError("CART_BUSY", "cart is being discounted by another request", http.StatusConflict, err)
			}
			return nil, unavailable("LOCK_UNAVAILABLE", "cart lock unavailable", err)
		}
	} else {
		_ = run(ctx)
	}

	if errors.Is(evalErr, ErrPublish) {
		return nil, unavailable("LEDGER_UNAVAILABLE", "promotion records could not be stored, retry the request", evalErr)
	}

	resp := &evaluateResponse{
		Outcome:      outcome,
		Summary:      ct.Summary(),
		AppliedRules: ct.AppliedRuleIDs(),
	}
	for _, res := range outcome.Results {
		if res.Error != "" {
			resp.Errors = append(resp.Errors, res.Error)
		}
	}
	return resp, nil
}
