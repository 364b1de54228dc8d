package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks ledger operation outcomes and pool balances.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	pools      *prometheus.GaugeVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics registered with the default
// Prometheus registry.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = NewLedgerMetrics(prometheus.DefaultRegisterer)
	})
	return ledgerRegistry
}

// NewLedgerMetrics builds a registry-scoped instance. Tests pass a fresh
// prometheus.Registry.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kaiadefi",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger state transitions segmented by operation and outcome code.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kaiadefi",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Latency of ledger state transitions including commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		pools: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kaiadefi",
			Subsystem: "ledger",
			Name:      "pool_balance",
			Help:      "Pool balances in whole token units.",
		}, []string{"pool"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.latency, m.pools)
	}
	return m
}

// ObserveOperation records an operation outcome. outcome is "ok" or the
// error code.
func (m *LedgerMetrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetPool records the current value of a named pool.
func (m *LedgerMetrics) SetPool(pool string, value float64) {
	if m == nil {
		return
	}
	m.pools.WithLabelValues(pool).Set(value)
}
