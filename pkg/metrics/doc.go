// Package metrics provides Prometheus-compatible metrics for netmonkey.
//
// This package implements the Prometheus text exposition format (text/plain; version=0.0.4)
// without any external dependencies, using only the standard library.
//
// Supported metric types:
//   - Counter: monotonically increasing value (e.g., request counts)
//   - Histogram: distribution of values with configurable buckets (e.g., latencies)
//
// All metrics are thread-safe and can be updated from multiple goroutines.
//
// # Fault Metrics
//
// FaultCollector is a monkey.Observer that records engine activity:
//
//   - netmonkey_requests_total: Counter (labels: method, outcome)
//   - netmonkey_faults_total: Counter (labels: rule)
//   - netmonkey_intercept_duration_seconds: Histogram (labels: method)
//
// outcome is one of passthrough, fired or error.
//
// # Usage
//
//	registry := metrics.NewRegistry()
//	engine := monkey.New(monkey.WithObserver(metrics.NewFaultCollector(registry)))
//
//	http.Handle("/metrics", registry.Handler())
//
// Other metrics can live on the same registry:
//
//	counter := registry.NewCounter("my_counter", "Description of counter", "label1", "label2")
//	series, _ := counter.WithLabels("value1", "value2")
//	_ = series.Inc()
//
// Series are written sorted by label values so the output is stable.
package metrics
