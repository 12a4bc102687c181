package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGetReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Initialize())
}

func TestThrottleDecisionCounter(t *testing.T) {
	c := Get().ThrottleDecisions.WithLabelValues("similar_content", "test_allow")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestOperationStats_Snapshot(t *testing.T) {
	s := &OperationStats{}
	for _, ms := range []int{40, 10, 30, 20} {
		s.Observe(time.Duration(ms)*time.Millisecond, ms == 40)
	}

	snap := s.Snapshot()
	assert.Equal(t, int64(4), snap["calls"])
	assert.Equal(t, int64(1), snap["degraded"])
	assert.Equal(t, 25.0, snap["degraded_rate"])
	assert.Equal(t, 25.0, snap["avg_time_ms"])
	assert.Equal(t, int64(10), snap["min_time_ms"])
	assert.Equal(t, int64(40), snap["max_time_ms"])
	assert.Equal(t, int64(30), snap["p50_time_ms"])
}

func TestOperationStats_Empty(t *testing.T) {
	snap := (&OperationStats{}).Snapshot()
	assert.Equal(t, int64(0), snap["calls"])
	assert.Equal(t, 0.0, snap["avg_time_ms"])
	assert.Equal(t, int64(0), snap["p99_time_ms"])
}

func TestOperationStats_RingKeepsRecent(t *testing.T) {
	s := &OperationStats{}
	for i := 0; i < maxTimings; i++ {
		s.Observe(time.Millisecond, false)
	}
	for i := 0; i < maxTimings; i++ {
		s.Observe(50*time.Millisecond, false)
	}
	assert.Equal(t, int64(50), s.Snapshot()["p50_time_ms"])
}

func TestStatsRegistry(t *testing.T) {
	r := &StatsRegistry{ops: make(map[string]*OperationStats)}
	assert.Same(t, r.Op(OpSimilarContent), r.Op(OpSimilarContent))

	r.Observe(OpActivityFeed, time.Now(), false)
	snap := r.Snapshot()
	assert.Contains(t, snap, OpActivityFeed)
	assert.Contains(t, snap, OpSimilarContent)
	assert.Contains(t, snap, "timestamp")

	r.Reset()
	assert.NotContains(t, r.Snapshot(), OpActivityFeed)
	assert.Same(t, Stats(), Stats())
}
