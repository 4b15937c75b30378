package cache

import (
	"sync"
	"time"
)

// latencyWindow bounds the rolling latency sample; oldest entries are
// evicted first once the window is full.
const latencyWindow = 1000

// Metrics is an immutable snapshot of cache performance counters.
// HitRate and AverageResponseTime are derived at snapshot time from the raw
// counters and the latency window; they are never stored independently.
type Metrics struct {
	Hits                int64   `json:"hits"`
	Misses              int64   `json:"misses"`
	TotalOperations     int64   `json:"total_operations"`
	HitRate             float64 `json:"hit_rate"`
	AverageResponseTime float64 `json:"average_response_time_ms"`
}

// Collector tracks hit/miss counts and a bounded window of operation
// latencies. Every read path reports into it concurrently, so all state sits
// behind one mutex, since the derived values in Snapshot must see the counters
// and the window together.
type Collector struct {
	mu        sync.Mutex
	hits      int64
	misses    int64
	latencies []time.Duration
	next      int
}

func NewCollector() *Collector {
	return &Collector{latencies: make([]time.Duration, 0, latencyWindow)}
}

// Record registers one read outcome and its duration.
func (c *Collector) Record(hit bool, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	if len(c.latencies) < latencyWindow {
		c.latencies = append(c.latencies, d)
		return
	}
	c.latencies[c.next] = d
	c.next = (c.next + 1) % latencyWindow
}

// Snapshot returns a copy of the current metrics. The returned value shares
// no state with the collector.
func (c *Collector) Snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	m := Metrics{
		Hits:            c.hits,
		Misses:          c.misses,
		TotalOperations: total,
	}
	if total > 0 {
		m.HitRate = float64(c.hits) / float64(total) * 100
	}
	if n := len(c.latencies); n > 0 {
		var sum time.Duration
		for _, d := range c.latencies {
			sum += d
		}
		m.AverageResponseTime = float64(sum.Microseconds()) / float64(n) / 1000
	}
	return m
}

// Reset zeroes all counters and empties the latency window.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
	c.latencies = c.latencies[:0]
	c.next = 0
}
