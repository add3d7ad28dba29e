// ABOUTME: Prometheus series for collections, allocations and root depth
// ABOUTME: CollectorMetrics implements gc.Observer

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prateek/rootgc/gc"
)

const (
	namespace = "rootgc"
	subsystem = "collector"
)

// CollectorMetrics holds the series recorded for one or more collectors.
type CollectorMetrics struct {
	// Collections counts completed mark/sweep cycles.
	Collections prometheus.Counter

	// ReclaimedObjects counts objects destroyed by sweeps.
	ReclaimedObjects prometheus.Counter

	// LiveObjects tracks the live object count after the latest collection.
	LiveObjects prometheus.Gauge

	// Threshold tracks the collection threshold after the latest collection.
	Threshold prometheus.Gauge

	// RootDepth tracks the current number of root stack entries.
	RootDepth prometheus.Gauge

	// PauseSeconds observes the duration of each collection.
	PauseSeconds prometheus.Histogram

	// Allocations counts successful allocations.
	Allocations prometheus.Counter

	// AllocationFailures counts failed allocations by reason.
	AllocationFailures *prometheus.CounterVec
}

func newCollectorMetrics(factory promauto.Factory) *CollectorMetrics {
	return &CollectorMetrics{
		Collections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "collections_total",
			Help:      "Total number of completed garbage collections.",
		}),
		ReclaimedObjects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reclaimed_objects_total",
			Help:      "Total number of managed objects reclaimed by sweeps.",
		}),
		LiveObjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "live_objects",
			Help:      "Managed objects still linked after the latest collection.",
		}),
		Threshold: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "threshold",
			Help:      "Live object count at which the next automatic collection runs.",
		}),
		RootDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "root_depth",
			Help:      "Current number of root stack entries.",
		}),
		PauseSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pause_seconds",
			Help:      "Duration of stop-the-world collections.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12), // 1µs to ~4s
		}),
		Allocations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "allocations_total",
			Help:      "Total number of successful allocations.",
		}),
		AllocationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "allocation_failures_total",
			Help:      "Total number of failed allocations by reason.",
		}, []string{"reason"}),
	}
}

// NewCollectorMetrics creates collector metrics registered with the default
// registry.
func NewCollectorMetrics() *CollectorMetrics {
	return newCollectorMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewCollectorMetricsWithRegistry creates collector metrics registered with
// a custom registry.
func NewCollectorMetricsWithRegistry(reg prometheus.Registerer) *CollectorMetrics {
	return newCollectorMetrics(promauto.With(reg))
}

// ObserveAllocation implements gc.Observer.
func (m *CollectorMetrics) ObserveAllocation() {
	m.Allocations.Inc()
}

// ObserveAllocationFailure implements gc.Observer.
func (m *CollectorMetrics) ObserveAllocationFailure(reason string) {
	m.AllocationFailures.WithLabelValues(reason).Inc()
}

// ObserveCollection implements gc.Observer.
func (m *CollectorMetrics) ObserveCollection(stats gc.CollectStats) {
	m.Collections.Inc()
	m.ReclaimedObjects.Add(float64(stats.Reclaimed))
	m.LiveObjects.Set(float64(stats.Live))
	m.Threshold.Set(float64(stats.Threshold))
	m.PauseSeconds.Observe(stats.Duration.Seconds())
}

// ObserveRootDepth implements gc.Observer.
func (m *CollectorMetrics) ObserveRootDepth(depth int) {
	m.RootDepth.Set(float64(depth))
}

var _ gc.Observer = (*CollectorMetrics)(nil)
