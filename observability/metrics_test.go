package observability

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSettlementMetrics(t *testing.T) {
	m := Settlement()
	if m != Settlement() {
		t.Fatalf("expected a single registry")
	}

	before := testutil.ToFloat64(m.blocks)
	m.ObserveBlock(42, 15*time.Millisecond)
	if got := testutil.ToFloat64(m.blocks); got != before+1 {
		t.Fatalf("blocks counter: got %v want %v", got, before+1)
	}
	if got := testutil.ToFloat64(m.tipHeight); got != 42 {
		t.Fatalf("tip height: got %v", got)
	}

	paidBefore := testutil.ToFloat64(m.rewardAmount.WithLabelValues("miner"))
	m.RecordPayout("miner", uint256.NewInt(500))
	if got := testutil.ToFloat64(m.rewardAmount.WithLabelValues("miner")); got != paidBefore+500 {
		t.Fatalf("coinbase paid: got %v want %v", got, paidBefore+500)
	}

	rollbacks := testutil.ToFloat64(m.transitions.WithLabelValues("rollback"))
	m.RecordTransition(false)
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("rollback")); got != rollbacks+1 {
		t.Fatalf("rollback counter: got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *SettlementMetrics
	m.ObserveBlock(1, time.Second)
	m.RecordTransition(true)
	m.RecordPayout("burn", uint256.NewInt(1))
	m.RecordPoisoned()

	var e *eventMetrics
	e.RecordEvent("stx.transfer")
}

func TestEventMetricsNormalizeType(t *testing.T) {
	e := Events()
	before := testutil.ToFloat64(e.emitted.WithLabelValues("unknown"))
	e.RecordEvent("  ")
	if got := testutil.ToFloat64(e.emitted.WithLabelValues("unknown")); got != before+1 {
		t.Fatalf("unknown counter: got %v", got)
	}
}
