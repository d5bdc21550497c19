package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/lock"
)

type staticRules struct {
	rules []Rule
	err   error
}

func (s staticRules) ActiveRules(context.Context) ([]Rule, error) { return s.rules, s.err }

type staticCategories struct {
	snap catalog.Snapshot
	err  error
}

func (s staticCategories) Resolve(context.Context, []string) (catalog.Snapshot, error) {
	return s.snap, s.err
}

type stubLocker struct {
	keys []string
	err  error
}

func (l *stubLocker) WithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

const cartJSON = `{
  "id": "cart-1",
  "currency": "USD",
  "items": [
    {"id": "l1", "sku": "S1", "product": "P1", "qty": 2, "unitPrice": "2.50"},
    {"id": "l2", "sku": "S2", "product": "P2", "qty": 2, "unitPrice": "5"},
    {"id": "l3", "sku": "S3", "product": "P3", "qty": 2, "unitPrice": "7.50"}
  ],
  "shipping": [{"code": "GROUND", "cost": "6"}],
  "selectedShipping": "GROUND"
}`

func newHandler(pub Publisher, locker CartLocker) *Handler {
	return &Handler{
		Rules: staticRules{rules: []Rule{categoryRule(10, 3)}},
		Categories: staticCategories{snap: catalog.NewSnapshot(map[string][]string{
			"P1": {"SHOES|MAIN"}, "P2": {"SHOES|MAIN"}, "P3": {"SHOES|MAIN"},
		})},
		Evaluator: &Evaluator{Publisher: pub, Logger: zerolog.Nop()},
		Locker:    locker,
		Logger:    zerolog.Nop(),
	}
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/promotions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

type responseBody struct {
	DryRun       bool     `json:"dryRun"`
	Total        string   `json:"total"`
	Records      []any    `json:"records"`
	AppliedRules []int64  `json:"appliedRules"`
	Errors       []string `json:"errors"`
	Summary      struct {
		Subtotal string `json:"subtotal"`
		Discount string `json:"discount"`
		Total    string `json:"total"`
	} `json:"summary"`
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) responseBody {
	t.Helper()
	var body responseBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestPreviewUsesStoredRules(t *testing.T) {
	pub := &recordingPublisher{}
	locker := &stubLocker{}
	h := newHandler(pub, locker)

	rr := post(h.Preview, `{"cart":`+cartJSON+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if !body.DryRun || body.Total != "3" || len(body.Records) != 0 {
		t.Fatalf("unexpected preview %+v", body)
	}
	if body.Summary.Discount != "0" || pub.calls != 0 || len(locker.keys) != 0 {
		t.Fatalf("preview must not change or lock the cart: %+v", body.Summary)
	}
}

func TestApplyLocksAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	locker := &stubLocker{}
	h := newHandler(pub, locker)

	rr := post(h.Apply, `{"cart":`+cartJSON+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body.DryRun || len(body.Records) != 2 || len(body.AppliedRules) != 1 || body.AppliedRules[0] != 10 {
		t.Fatalf("unexpected apply %+v", body)
	}
	if body.Summary.Subtotal != "30" || body.Summary.Discount != "3" || body.Summary.Total != "33" {
		t.Fatalf("unexpected summary %+v", body.Summary)
	}
	if len(locker.keys) != 1 || locker.keys[0] != lock.CartKey("cart-1") || pub.calls != 1 {
		t.Fatalf("expected one locked, published commit; keys=%v calls=%d", locker.keys, pub.calls)
	}
}

func TestApplyInlineRulesReportConfigErrors(t *testing.T) {
	h := newHandler(&recordingPublisher{}, &stubLocker{})
	req := `{"cart":` + cartJSON + `,"rules":[{"id":7,"actions":[
		{"id":1,"kind":"sku_percent","value":"150","target":"S1"},
		{"id":2,"kind":"subtotal_amount","value":"5"}]}]}`

	rr := post(h.Apply, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body.Total != "5" || len(body.Errors) != 1 {
		t.Fatalf("expected one config error and the subtotal action applied, got %+v", body)
	}
}

func TestEvaluateErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(h *Handler)
		body   string
		apply  bool
		status int
	}{
		{name: "malformed", body: `{"cart":`, status: http.StatusBadRequest},
		{name: "missing cart", body: `{}`, status: http.StatusUnprocessableEntity},
		{name: "bad shipping", body: `{"cart":{"id":"c","currency":"USD","selectedShipping":"AIR"}}`, status: http.StatusUnprocessableEntity},
		{name: "apply without id", body: `{"cart":{"currency":"USD"}}`, apply: true, status: http.StatusUnprocessableEntity},
		{
			name:   "rules down",
			mutate: func(h *Handler) { h.Rules = staticRules{err: errors.New("db down")} },
			body:   `{"cart":` + cartJSON + `}`,
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "catalog down",
			mutate: func(h *Handler) { h.Categories = staticCategories{err: catalog.ErrUnavailable} },
			body:   `{"cart":` + cartJSON + `}`,
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "cart busy",
			mutate: func(h *Handler) { h.Locker = &stubLocker{err: lock.ErrBusy} },
			body:   `{"cart":` + cartJSON + `}`,
			apply:  true,
			status: http.StatusConflict,
		},
		{
			name:   "ledger down",
			mutate: func(h *Handler) { h.Evaluator.Publisher = &recordingPublisher{err: errors.New("queue down")} },
			body:   `{"cart":` + cartJSON + `}`,
			apply:  true,
			status: http.StatusServiceUnavailable,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandler(&recordingPublisher{}, &stubLocker{})
			if tc.mutate != nil {
				tc.mutate(h)
			}
			fn := h.Preview
			if tc.apply {
				fn = h.Apply
			}
			if rr := post(fn, tc.body); rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}
