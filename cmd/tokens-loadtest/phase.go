package main

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// phaseStats summarizes one phase. Latencies are wall-clock per call.
type phaseStats struct {
	ops      int
	failures int64
	total    time.Duration
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

func (s phaseStats) opsPerSecond() float64 {
	if s.total <= 0 {
		return 0
	}
	return float64(s.ops) / s.total.Seconds()
}

func (s phaseStats) String() string {
	return fmt.Sprintf("ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s",
		s.ops, s.failures, s.total.Round(time.Millisecond), s.opsPerSecond(),
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}

// runPhase hands out call indexes 0..ops-1 to concurrency workers. Each worker
// gets its own generator derived from seed, and op reports success.
func runPhase(ops, concurrency int, seed uint64, op func(r *rand.Rand, i int) bool) phaseStats {
	var next, failures atomic.Int64
	samples := make([][]time.Duration, concurrency)

	var wg sync.WaitGroup
	start := time.Now()
	for w := range concurrency {
		wg.Go(func() {
			r := rand.New(rand.NewPCG(seed, uint64(w)))
			for {
				i := int(next.Add(1) - 1)
				if i >= ops {
					return
				}
				began := time.Now()
				if !op(r, i) {
					failures.Add(1)
				}
				samples[w] = append(samples[w], time.Since(began))
			}
		})
	}
	wg.Wait()

	return summarize(time.Since(start), slices.Concat(samples...), failures.Load())
}

func summarize(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	stats := phaseStats{total: total, ops: len(samples), failures: failures}
	slices.Sort(samples)
	stats.p50 = percentile(samples, 50)
	stats.p95 = percentile(samples, 95)
	stats.p99 = percentile(samples, 99)
	return stats
}

// percentile indexes a sorted slice; p is clamped to [0, 100].
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 100)
	return sorted[(len(sorted)-1)*p/100]
}
