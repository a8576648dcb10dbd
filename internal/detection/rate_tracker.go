package detection

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

// RateTrackerConfig holds the tunables for per-address request counting
type RateTrackerConfig struct {
	Window               time.Duration
	SoftThreshold        int
	EscalationMultiplier int
}

// DefaultRateTrackerConfig returns the documented defaults: 100 requests
// per 60 seconds, escalation at 2x
func DefaultRateTrackerConfig() RateTrackerConfig {
	return RateTrackerConfig{
		Window:               60 * time.Second,
		SoftThreshold:        100,
		EscalationMultiplier: 2,
	}
}

// RateResult is the outcome of recording one request against an address's window
type RateResult struct {
	Count            int
	Exceeded         bool // count is past the soft threshold; reject the request
	SeverelyExceeded bool // count is past threshold * multiplier; escalate
}

type rateWindow struct {
	count       int
	windowStart time.Time
}

type trackerShard struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
}

// RateTracker counts requests per source address over sliding windows.
// State is per-process and intentionally non-durable; a restart starts
// counting from zero. Addresses are spread over shards so concurrent
// requests from different sources never contend on one lock.
type RateTracker struct {
	cfg    RateTrackerConfig
	shards [shardCount]*trackerShard
}

// NewRateTracker creates a tracker, falling back to defaults for zero values
func NewRateTracker(cfg RateTrackerConfig) *RateTracker {
	def := DefaultRateTrackerConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.SoftThreshold <= 0 {
		cfg.SoftThreshold = def.SoftThreshold
	}
	if cfg.EscalationMultiplier < 2 {
		cfg.EscalationMultiplier = def.EscalationMultiplier
	}

	t := &RateTracker{cfg: cfg}
	for i := range t.shards {
		t.shards[i] = &trackerShard{windows: make(map[string]*rateWindow)}
	}
	return t
}

func (t *RateTracker) shardFor(address string) *trackerShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	return t.shards[h.Sum32()%shardCount]
}

// RecordAndCheck increments the window counter for address. The window
// resets to a count of 1 once now is past windowStart + Window. Increments
// for one address are serialized by the shard lock, so concurrent requests
// never lose counts.
func (t *RateTracker) RecordAndCheck(address string, now time.Time) RateResult {
	shard := t.shardFor(address)

	shard.mu.Lock()
	w, ok := shard.windows[address]
	if !ok || now.Sub(w.windowStart) > t.cfg.Window {
		w = &rateWindow{count: 0, windowStart: now}
		shard.windows[address] = w
	}
	w.count++
	count := w.count
	shard.mu.Unlock()

	return RateResult{
		Count:            count,
		Exceeded:         count > t.cfg.SoftThreshold,
		SeverelyExceeded: count > t.cfg.SoftThreshold*t.cfg.EscalationMultiplier,
	}
}

// Sweep drops windows whose start is more than one window length in the
// past, bounding memory growth. Returns the number of windows removed.
func (t *RateTracker) Sweep(now time.Time) int {
	removed := 0
	for _, shard := range t.shards {
		shard.mu.Lock()
		for address, w := range shard.windows {
			if now.Sub(w.windowStart) > t.cfg.Window {
				delete(shard.windows, address)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Size returns the number of tracked addresses across all shards
func (t *RateTracker) Size() int {
	total := 0
	for _, shard := range t.shards {
		shard.mu.Lock()
		total += len(shard.windows)
		shard.mu.Unlock()
	}
	return total
}
