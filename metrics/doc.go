// ABOUTME: Package documentation for collector metrics
// ABOUTME: Explains how the Prometheus observer is wired into a collector

// Package metrics exposes collector telemetry as Prometheus series.
//
// [CollectorMetrics] implements gc.Observer, so wiring it is a single option:
//
//	m := metrics.NewCollectorMetrics()
//	c := gc.New(gc.WithObserver(m))
//
// Tests should use [NewCollectorMetricsWithRegistry] with a private
// registry to avoid duplicate registration against the default one.
package metrics
