package answer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageStats_Summary(t *testing.T) {
	stats := NewStageStats(0)
	for _, ms := range []int64{500, 100, 300, 200, 400} {
		stats.record(StageSearch, time.Duration(ms)*time.Millisecond, false)
	}
	stats.record(StageSearch, 0, true)

	got := stats.Snapshot()[StageSearch]
	assert.Equal(t, StageLatency{
		Count:  6,
		Errors: 1,
		AvgMs:  250,
		P50Ms:  200,
		P95Ms:  500,
		MaxMs:  500,
	}, got)
}

func TestStageStats_KnownStagesAlwaysReported(t *testing.T) {
	snap := NewStageStats(0).Snapshot()
	require.Len(t, snap, 3)
	for _, stage := range []string{StageEmbed, StageSearch, StageComplete} {
		assert.Equal(t, StageLatency{}, snap[stage], stage)
	}
}

func TestStageStats_WindowDropsOldest(t *testing.T) {
	stats := NewStageStats(3)
	for _, ms := range []int64{1000, 20, 30, 40, 50} {
		stats.record(StageComplete, time.Duration(ms)*time.Millisecond, false)
	}

	got := stats.Snapshot()[StageComplete]
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, int64(50), got.MaxMs)
	assert.Equal(t, float64(40), got.AvgMs)
}

func TestStageStats_ObserveCountsErrors(t *testing.T) {
	stats := NewStageStats(0)
	stats.Observe(StageEmbed, time.Now(), nil)
	stats.Observe(StageEmbed, time.Now().Add(time.Second), errors.New("boom"))

	got := stats.Snapshot()[StageEmbed]
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 1, got.Errors)
	assert.Zero(t, got.P50Ms, "future start clamps to zero")
}

func TestNearestRank(t *testing.T) {
	values := make([]int64, 20)
	for i := range values {
		values[i] = int64(i + 1)
	}
	assert.Equal(t, int64(10), nearestRank(values, 50))
	assert.Equal(t, int64(19), nearestRank(values, 95))
	assert.Equal(t, int64(1), nearestRank(values, 0))
	assert.Equal(t, int64(7), nearestRank([]int64{7}, 95))
}
