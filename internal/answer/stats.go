package answer

import (
	"slices"
	"sync"
	"time"
)

// Stages of Service.Ask, in the order they run.
const (
	StageEmbed    = "embed_question"
	StageSearch   = "search"
	StageComplete = "complete"
)

// DefaultStatsWindow is how many recent calls each stage keeps.
const DefaultStatsWindow = 256

// StageLatency summarises the recent calls of one stage. Durations include
// retries.
type StageLatency struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  int64   `json:"p50_ms"`
	P95Ms  int64   `json:"p95_ms"`
	MaxMs  int64   `json:"max_ms"`
}

type stageSample struct {
	ms     int64
	failed bool
}

// stageRing holds at most window samples, overwriting the oldest.
type stageRing struct {
	samples []stageSample
	next    int
}

// StageStats keeps the most recent latencies of each answer stage.
type StageStats struct {
	mu     sync.Mutex
	window int
	stages map[string]*stageRing
}

func NewStageStats(window int) *StageStats {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	s := &StageStats{window: window, stages: make(map[string]*stageRing)}
	for _, name := range []string{StageEmbed, StageSearch, StageComplete} {
		s.stages[name] = &stageRing{}
	}
	return s
}

// Observe records the time since start against stage. A non-nil err marks
// the call as failed.
func (s *StageStats) Observe(stage string, start time.Time, err error) {
	s.record(stage, time.Since(start), err != nil)
}

func (s *StageStats) record(stage string, d time.Duration, failed bool) {
	sm := stageSample{ms: max(d.Milliseconds(), 0), failed: failed}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.stages[stage]
	if !ok {
		r = &stageRing{}
		s.stages[stage] = r
	}
	if len(r.samples) < s.window {
		r.samples = append(r.samples, sm)
		return
	}
	r.samples[r.next] = sm
	r.next = (r.next + 1) % s.window
}

// Snapshot returns a summary per stage. Stages with no calls yet are present
// with zero values.
func (s *StageStats) Snapshot() map[string]StageLatency {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]StageLatency, len(s.stages))
	for name, r := range s.stages {
		out[name] = r.summary()
	}
	return out
}

func (r *stageRing) summary() StageLatency {
	if len(r.samples) == 0 {
		return StageLatency{}
	}
	values := make([]int64, len(r.samples))
	var (
		sum    int64
		errors int
	)
	for i, sm := range r.samples {
		values[i] = sm.ms
		sum += sm.ms
		if sm.failed {
			errors++
		}
	}
	slices.Sort(values)

	return StageLatency{
		Count:  len(values),
		Errors: errors,
		AvgMs:  float64(sum) / float64(len(values)),
		P50Ms:  nearestRank(values, 50),
		P95Ms:  nearestRank(values, 95),
		MaxMs:  values[len(values)-1],
	}
}

// nearestRank returns the smallest sample with at least pct percent of the
// samples at or below it.
func nearestRank(sorted []int64, pct int) int64 {
	rank := (pct*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
