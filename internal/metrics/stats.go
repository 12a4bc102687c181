package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Engine operation names tracked by the stats registry
const (
	OpExclusions       = "exclusions"
	OpSimilarContent   = "similar_content"
	OpFindSimilarUsers = "find_similar_users"
	OpShowableSet      = "showable_set"
	OpActivityFeed     = "activity_feed"
)

const maxTimings = 10000

// OperationStats keeps running latency and degradation figures for one
// engine operation. Prometheus has the durable series; this is the live view
// the ops server prints at /stats.
type OperationStats struct {
	Calls    int64
	Degraded int64

	// milliseconds
	TotalTime int64
	MaxTime   int64
	MinTime   int64

	mu      sync.Mutex
	timings []int64
	next    int
}

// Observe records one call
func (s *OperationStats) Observe(d time.Duration, degraded bool) {
	atomic.AddInt64(&s.Calls, 1)
	if degraded {
		atomic.AddInt64(&s.Degraded, 1)
	}

	ms := d.Milliseconds()
	atomic.AddInt64(&s.TotalTime, ms)
	s.updateMinMax(ms)

	// Ring buffer of recent timings for percentiles
	s.mu.Lock()
	if len(s.timings) < maxTimings {
		s.timings = append(s.timings, ms)
	} else {
		s.timings[s.next] = ms
		s.next = (s.next + 1) % maxTimings
	}
	s.mu.Unlock()
}

func (s *OperationStats) updateMinMax(ms int64) {
	for {
		old := atomic.LoadInt64(&s.MinTime)
		if (old != 0 && ms >= old) || atomic.CompareAndSwapInt64(&s.MinTime, old, ms) {
			break
		}
	}
	for {
		old := atomic.LoadInt64(&s.MaxTime)
		if ms <= old || atomic.CompareAndSwapInt64(&s.MaxTime, old, ms) {
			break
		}
	}
}

// Snapshot returns the current figures as a map
func (s *OperationStats) Snapshot() map[string]interface{} {
	calls := atomic.LoadInt64(&s.Calls)
	degraded := atomic.LoadInt64(&s.Degraded)

	var avg, degradedRate float64
	if calls > 0 {
		avg = float64(atomic.LoadInt64(&s.TotalTime)) / float64(calls)
		degradedRate = float64(degraded) / float64(calls) * 100
	}

	p50, p95, p99 := s.percentiles()

	return map[string]interface{}{
		"calls":         calls,
		"degraded":      degraded,
		"degraded_rate": degradedRate,
		"avg_time_ms":   avg,
		"min_time_ms":   atomic.LoadInt64(&s.MinTime),
		"max_time_ms":   atomic.LoadInt64(&s.MaxTime),
		"p50_time_ms":   p50,
		"p95_time_ms":   p95,
		"p99_time_ms":   p99,
	}
}

func (s *OperationStats) percentiles() (p50, p95, p99 int64) {
	s.mu.Lock()
	timings := make([]int64, len(s.timings))
	copy(timings, s.timings)
	s.mu.Unlock()

	if len(timings) == 0 {
		return 0, 0, 0
	}
	sort.Slice(timings, func(i, j int) bool { return timings[i] < timings[j] })

	n := len(timings)
	return timings[(n*50)/100], timings[(n*95)/100], timings[(n*99)/100]
}

// StatsRegistry maps operation names to their stats
type StatsRegistry struct {
	mu  sync.RWMutex
	ops map[string]*OperationStats
}

var (
	registry     *StatsRegistry
	registryOnce sync.Once
)

// Stats returns the global stats registry (singleton)
func Stats() *StatsRegistry {
	registryOnce.Do(func() {
		registry = &StatsRegistry{ops: make(map[string]*OperationStats)}
	})
	return registry
}

// Op returns the stats for name, creating them on first use
func (r *StatsRegistry) Op(name string) *OperationStats {
	r.mu.RLock()
	s, ok := r.ops[name]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.ops[name]; !ok {
		s = &OperationStats{}
		r.ops[name] = s
	}
	return s
}

// Observe records one call of the named operation
func (r *StatsRegistry) Observe(name string, start time.Time, degraded bool) {
	r.Op(name).Observe(time.Since(start), degraded)
}

// Snapshot returns every operation's figures keyed by name
func (r *StatsRegistry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]interface{}, len(r.ops)+1)
	for name, s := range r.ops {
		out[name] = s.Snapshot()
	}
	out["timestamp"] = time.Now().Unix()
	return out
}

// Reset drops all recorded operations
func (r *StatsRegistry) Reset() {
	r.mu.Lock()
	r.ops = make(map[string]*OperationStats)
	r.mu.Unlock()
}
