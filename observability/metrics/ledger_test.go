package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLedgerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.ObserveOperation("borrow", "ok", 3*time.Millisecond)
	m.ObserveOperation("borrow", "InsufficientCollateral", time.Millisecond)
	m.ObserveOperation("borrow", "", time.Millisecond)
	m.SetPool("lending_reserve", 1500.5)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("borrow", "ok")); got != 1 {
		t.Fatalf("ok count %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("borrow", "error")); got != 1 {
		t.Fatalf("blank outcome must count as error, got %v", got)
	}
	if got := testutil.ToFloat64(m.pools.WithLabelValues("lending_reserve")); got != 1500.5 {
		t.Fatalf("pool gauge %v", got)
	}

	var nilMetrics *LedgerMetrics
	nilMetrics.ObserveOperation("stake", "ok", 0)
	nilMetrics.SetPool("x", 1)
}
