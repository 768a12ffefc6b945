package adaptation

import (
	"maps"
	"sync"
	"time"

	"wayfarer/internal/domain"
)

// DefaultSuccessThreshold is the confidence at which an adaptation counts
// as successful.
const DefaultSuccessThreshold = 0.7

// tracker keeps the running averages behind Engine.Metrics. It lives only
// in memory and is cleared by Engine.Reset.
type tracker struct {
	mu        sync.Mutex
	threshold float64

	total      int64
	successful int64
	hits       int64
	avgConf    float64
	avgLatency time.Duration
	byContext  map[string]int64
}

func newTracker(threshold float64) *tracker {
	return &tracker{threshold: threshold, byContext: make(map[string]int64)}
}

func (t *tracker) record(confidence float64, latency time.Duration, hit bool, activity domain.ActivityContext) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	n := float64(t.total)
	successful := confidence >= t.threshold
	if successful {
		t.successful++
	}
	if hit {
		t.hits++
	}
	t.avgConf += (confidence - t.avgConf) / n
	t.avgLatency += time.Duration(float64(latency-t.avgLatency) / n)
	t.byContext[string(activity)]++
	return successful
}

func (t *tracker) snapshot() domain.AdaptationMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := domain.AdaptationMetrics{
		TotalAdaptations:      t.total,
		SuccessfulAdaptations: t.successful,
		AverageConfidence:     t.avgConf,
		AverageLatency:        t.avgLatency,
		ContextTypeCounts:     maps.Clone(t.byContext),
	}
	if t.total > 0 {
		m.CacheHitRate = float64(t.hits) / float64(t.total)
	}
	return m
}

func (t *tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total, t.successful, t.hits = 0, 0, 0
	t.avgConf, t.avgLatency = 0, 0
	t.byContext = make(map[string]int64)
}
