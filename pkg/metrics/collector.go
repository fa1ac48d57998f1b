package metrics

import (
	"github.com/getmockd/netmonkey/pkg/monkey"
)

// Outcome label values for netmonkey_requests_total.
const (
	OutcomePassthrough = "passthrough"
	OutcomeFired       = "fired"
	OutcomeError       = "error"
)

// InterceptBuckets are histogram buckets for intercept durations (in seconds).
// They reach 30s to cover injected latency on top of slow upstreams.
var InterceptBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// FaultCollector records engine activity as Prometheus metrics.
// It implements monkey.Observer.
type FaultCollector struct {
	requests *Counter
	faults   *Counter
	duration *Histogram
}

var _ monkey.Observer = (*FaultCollector)(nil)

// NewFaultCollector registers the netmonkey metrics on reg.
func NewFaultCollector(reg *Registry) *FaultCollector {
	return &FaultCollector{
		requests: reg.NewCounter(
			"netmonkey_requests_total",
			"Total requests seen by the monkey engine",
			"method", "outcome",
		),
		faults: reg.NewCounter(
			"netmonkey_faults_total",
			"Total faults fired, by rule",
			"rule",
		),
		duration: reg.NewHistogram(
			"netmonkey_intercept_duration_seconds",
			"Time spent in the engine including the upstream call",
			InterceptBuckets,
			"method",
		),
	}
}

// Observe implements monkey.Observer.
func (c *FaultCollector) Observe(ev monkey.Event) {
	if vec, err := c.requests.WithLabels(ev.Method, outcome(ev)); err == nil {
		_ = vec.Inc()
	}
	if ev.Fired() {
		if vec, err := c.faults.WithLabels(ev.Rule.Description()); err == nil {
			_ = vec.Inc()
		}
	}
	if vec, err := c.duration.WithLabels(ev.Method); err == nil {
		vec.Observe(ev.Elapsed.Seconds())
	}
}

func outcome(ev monkey.Event) string {
	switch {
	case ev.Fired():
		return OutcomeFired
	case ev.Err != nil:
		return OutcomeError
	default:
		return OutcomePassthrough
	}
}
