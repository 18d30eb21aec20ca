package wordgate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram bucket in the in-process
// metrics block.
type MetricID uint16

const (
	// MetricCodeRequested counts codes generated and saved.
	MetricCodeRequested MetricID = iota
	// MetricCodeRequestRateLimited counts requests denied by the cooldown.
	MetricCodeRequestRateLimited
	// MetricDeliveryFailure counts delivery collaborator failures.
	MetricDeliveryFailure
	// MetricRedeemSuccess counts successful redemptions.
	MetricRedeemSuccess
	// MetricRedeemFailure counts failed redemptions of any kind.
	MetricRedeemFailure
	// MetricRedeemMalformed counts format-invalid submissions.
	MetricRedeemMalformed
	// MetricAttemptsExceeded counts redemptions refused at the ceiling.
	MetricAttemptsExceeded
	// MetricUnknownUser counts redemptions that consumed a code but found
	// no identity.
	MetricUnknownUser
	// MetricUserAutoCreated counts identities provisioned on redemption.
	MetricUserAutoCreated
	// MetricTokenVerifySuccess counts successful token verifications.
	MetricTokenVerifySuccess
	// MetricTokenVerifyFailure counts expired or invalid tokens.
	MetricTokenVerifyFailure
	// MetricVerifyLatency is the token-verification latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds cache-line-padded atomic counters and an optional latency
// histogram. A nil or disabled Metrics is a no-op on every path.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metric values.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics block per cfg. When Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample. Only MetricVerifyLatency is histogrammed.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricVerifyLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies all counters and histogram buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

// Buckets: <=5ms, <=10, <=25, <=50, <=100, <=250, <=500, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
