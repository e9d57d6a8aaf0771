package observability

import (
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks block settlement and reward payouts.
type SettlementMetrics struct {
	blocks        prometheus.Counter
	tipHeight     prometheus.Gauge
	transitions   *prometheus.CounterVec
	advanceTime   prometheus.Histogram
	rewards       *prometheus.CounterVec
	rewardAmount  *prometheus.CounterVec
	poisonedBatch prometheus.Counter
}

var (
	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// Settlement returns the lazily-initialised settlement metrics registry.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			blocks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "chain",
				Name:      "blocks_total",
				Help:      "Blocks appended to the chainstate.",
			}),
			tipHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "settle",
				Subsystem: "chain",
				Name:      "tip_height",
				Help:      "Height of the most recently appended block.",
			}),
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "chain",
				Name:      "transitions_total",
				Help:      "State transitions segmented by outcome.",
			}, []string{"outcome"}),
			advanceTime: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "settle",
				Subsystem: "chain",
				Name:      "advance_duration_seconds",
				Help:      "Time spent appending one block, including reward settlement.",
				Buckets:   prometheus.DefBuckets,
			}),
			rewards: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "rewards",
				Name:      "payouts_total",
				Help:      "Matured reward payouts segmented by recipient role.",
			}, []string{"role"}),
			rewardAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "rewards",
				Name:      "coinbase_paid_total",
				Help:      "Coinbase credited by matured rewards, in base units, segmented by recipient role.",
			}, []string{"role"}),
			poisonedBatch: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "settle",
				Subsystem: "rewards",
				Name:      "poisoned_batches_total",
				Help:      "Matured reward batches settled under a poison-microblock report.",
			}),
		}
		prometheus.MustRegister(
			settlementRegistry.blocks,
			settlementRegistry.tipHeight,
			settlementRegistry.transitions,
			settlementRegistry.advanceTime,
			settlementRegistry.rewards,
			settlementRegistry.rewardAmount,
			settlementRegistry.poisonedBatch,
		)
	})
	return settlementRegistry
}

// ObserveBlock records an appended block at height.
func (m *SettlementMetrics) ObserveBlock(height uint64, duration time.Duration) {
	if m == nil {
		return
	}
	m.blocks.Inc()
	m.tipHeight.Set(float64(height))
	m.advanceTime.Observe(duration.Seconds())
}

// RecordTransition counts a state transition that committed or rolled back.
func (m *SettlementMetrics) RecordTransition(committed bool) {
	if m == nil {
		return
	}
	outcome := "rollback"
	if committed {
		outcome = "commit"
	}
	m.transitions.WithLabelValues(outcome).Inc()
}

// RecordPayout counts one credited reward. role is miner, supporter,
// reporter or burn.
func (m *SettlementMetrics) RecordPayout(role string, amount *uint256.Int) {
	if m == nil {
		return
	}
	m.rewards.WithLabelValues(role).Inc()
	if amount != nil {
		m.rewardAmount.WithLabelValues(role).Add(u128Float(amount))
	}
}

// RecordPoisoned counts a batch settled under a poison report.
func (m *SettlementMetrics) RecordPoisoned() {
	if m == nil {
		return
	}
	m.poisonedBatch.Inc()
}

func u128Float(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
