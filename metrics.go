package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID names one in-process counter or histogram.
type MetricID uint16

const (
	// MetricIssueSuccess counts sessions created by Issue.
	MetricIssueSuccess MetricID = iota
	// MetricIssueFailure counts Issue calls that returned an error.
	MetricIssueFailure
	// MetricIssueRateLimited counts Issue calls refused by the issuance throttle.
	MetricIssueRateLimited
	// MetricVerifyAuthenticated counts verifications satisfied by the access token.
	MetricVerifyAuthenticated
	// MetricVerifyRotated counts verifications satisfied by the refresh token.
	MetricVerifyRotated
	// MetricVerifyUnauthorized counts denied verifications.
	MetricVerifyUnauthorized
	// MetricRotationConflict counts refresh tokens whose session was already gone,
	// which includes every loser of a concurrent rotation.
	MetricRotationConflict
	// MetricStoreUnavailable counts revocation store failures on any path.
	MetricStoreUnavailable
	// MetricRevoke counts sessions removed by Revoke.
	MetricRevoke
	// MetricRevokeFailure counts Revoke calls whose delete failed.
	MetricRevokeFailure
	// MetricPreviousSessionCleanupFailure counts failed best-effort deletes of a replaced session.
	MetricPreviousSessionCleanupFailure
	// MetricVerifyLatency is the Verify latency histogram.
	MetricVerifyLatency
	metricIDCount
)

// latencyBounds are the inclusive upper edges of the Verify latency buckets.
// Anything slower lands in the final overflow bucket.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(latencyBounds) + 1

// counter sits on its own cache line so hot counters bumped by different
// cores do not false-share.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics is a lock-free set of counters plus the Verify latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	verifyLatency [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram slices hold
// non-cumulative bucket counts.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics honoring cfg. Disabled metrics make every
// method a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id. Histogram ids are ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricVerifyLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in histogram id. Only MetricVerifyLatency is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricVerifyLatency {
		return
	}
	m.verifyLatency[latencyBucket(d)].Add(1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies all counters and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricVerifyLatency {
			s.Counters[id] = m.counters[id].Load()
		}
	}
	if m.enableLatency {
		buckets := make([]uint64, latencyBucketCount)
		for i := range buckets {
			buckets[i] = m.verifyLatency[i].Load()
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}
	return s
}

func latencyBucket(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
