package adaptation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for adaptations and the signal
// caches. It satisfies signalcache.Observer.
type Metrics struct {
	adaptations    *prometheus.CounterVec
	duration       prometheus.Histogram
	confidence     prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	failures       *prometheus.CounterVec
}

// MustNewMetrics registers the collectors on reg, reusing collectors that
// are already registered under the same name. Other registration errors
// panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	adaptations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wayfarer",
			Subsystem: "adaptation",
			Name:      "total",
			Help:      "Adaptations served, by format and outcome.",
		},
		[]string{"format", "outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wayfarer",
			Subsystem: "adaptation",
			Name:      "duration_seconds",
			Help:      "Time spent producing an adaptation, cache hits included.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)
	confidence := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wayfarer",
			Subsystem: "adaptation",
			Name:      "confidence",
			Help:      "Confidence of served adaptations.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wayfarer",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups, by cache and result.",
		},
		[]string{"cache", "result"},
	)
	cacheEvictions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wayfarer",
			Subsystem: "cache",
			Name:      "adaptation_evictions_total",
			Help:      "Adaptations evicted from the bounded cache.",
		},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wayfarer",
			Subsystem: "provider",
			Name:      "failures_total",
			Help:      "Collaborator fetches that failed and fell back to defaults.",
		},
		[]string{"cache"},
	)

	collectors := []prometheus.Collector{adaptations, duration, confidence, cacheLookups, cacheEvictions, failures}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector {
				case adaptations:
					adaptations = already.ExistingCollector.(*prometheus.CounterVec)
				case duration:
					duration = already.ExistingCollector.(prometheus.Histogram)
				case confidence:
					confidence = already.ExistingCollector.(prometheus.Histogram)
				case cacheLookups:
					cacheLookups = already.ExistingCollector.(*prometheus.CounterVec)
				case cacheEvictions:
					cacheEvictions = already.ExistingCollector.(prometheus.Counter)
				case failures:
					failures = already.ExistingCollector.(*prometheus.CounterVec)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		adaptations:    adaptations,
		duration:       duration,
		confidence:     confidence,
		cacheLookups:   cacheLookups,
		cacheEvictions: cacheEvictions,
		failures:       failures,
	}
}

// ObserveAdaptation records one served adaptation.
func (m *Metrics) ObserveAdaptation(format string, successful bool, confidence float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "low_confidence"
	if successful {
		outcome = "success"
	}
	m.adaptations.WithLabelValues(format, outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.confidence.Observe(confidence)
}

// CacheLookup counts a hit or miss on the named cache.
func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

// ProviderFailure counts a failed collaborator fetch behind the named cache.
func (m *Metrics) ProviderFailure(cache string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(cache).Inc()
}

// IncEviction counts an adaptation cache eviction.
func (m *Metrics) IncEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}
