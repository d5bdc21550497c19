package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var draining atomic.Bool

// SetReady flips readiness. The API clears it on shutdown so load balancers
// stop routing carts before in-flight evaluations finish.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Checker represents dependencies that can be probed for readiness. The
// catalog and rule store share the database probe; the category cache, cart
// locks and the ledger queue share the redis probe.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Report is the readiness body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes the database and redis in parallel. Any failing probe, or a
// server that is draining, answers 503.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	report := Report{Status: "ok", Checks: map[string]string{}}
	if h.Checker == nil {
		report.Status = "unavailable"
		writeReport(w, http.StatusServiceUnavailable, report)
		return
	}

	probes := map[string]func(context.Context) error{
		"db":    func(ctx context.Context) error { return h.Checker.PingDB(ctx, orDefault(h.DBTimeout, 500*time.Millisecond)) },
		"redis": func(ctx context.Context) error { return h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, 300*time.Millisecond)) },
	}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, probe := range probes {
		name, probe := name, probe
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := "ok"
			if err := probe(r.Context()); err != nil {
				result = err.Error()
			}
			mu.Lock()
			report.Checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	code := http.StatusOK
	for _, result := range report.Checks {
		if result != "ok" {
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if draining.Load() {
		report.Status = "shutting down"
		code = http.StatusServiceUnavailable
	}
	writeReport(w, code, report)
}

func writeReport(w http.ResponseWriter, code int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
