package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PromotionActionsTotal counts discount action applications by kind, mode
	// (dry_run or commit) and result.
	PromotionActionsTotal *prometheus.CounterVec
	// PromotionDiscountAmount records the discount granted per action.
	PromotionDiscountAmount *prometheus.HistogramVec
	// PromotionRecordsTotal counts application records produced in commit mode.
	PromotionRecordsTotal prometheus.Counter
	// LedgerBatchesTotal counts ledger batch publish and persist outcomes.
	LedgerBatchesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics creates the promotion collectors once per process.
// Later calls are no-ops whatever registry they pass.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		PromotionActionsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_actions_total",
			Help:      "Count of discount action applications by outcome.",
		}, []string{"kind", "mode", "result"}))
		PromotionDiscountAmount = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "promotion_discount_amount",
			Help:      "Discount granted per applied action in currency units.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"kind"}))
		PromotionRecordsTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_records_total",
			Help:      "Number of line-level application records produced.",
		}))
		LedgerBatchesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_ledger_batches_total",
			Help:      "Count of application record batches by stage and outcome.",
		}, []string{"stage", "result"}))
	})
}
