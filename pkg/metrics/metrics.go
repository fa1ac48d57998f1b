package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
	ErrLabelCountMismatch = errors.New("label count mismatch")

	// ErrNegativeCounterValue is returned when attempting to add a negative value to a counter.
	ErrNegativeCounterValue = errors.New("counter cannot be decreased")

	// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
	ErrDuplicateMetric = errors.New("duplicate metric name")
)

// ContentType is the Prometheus text exposition content type.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// atomicFloat64 stores float64 bits in a uint64 for atomic access.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// family holds one series per distinct combination of label values.
type family[S any] struct {
	name       string
	help       string
	kind       string
	labelNames []string
	newSeries  func() *S

	mu     sync.RWMutex
	series map[string]*labeled[S]
}

type labeled[S any] struct {
	values []string
	series *S
}

func (f *family[S]) with(values []string) (*S, error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s expects %d labels, got %d", ErrLabelCountMismatch, f.name, len(f.labelNames), len(values))
	}
	key := strings.Join(values, "\x00")

	f.mu.RLock()
	l, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return l.series, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.series[key]; ok {
		return l.series, nil
	}
	l = &labeled[S]{values: slices.Clone(values), series: f.newSeries()}
	f.series[key] = l
	return l.series, nil
}

// snapshot returns the series ordered by label values.
func (f *family[S]) snapshot() []*labeled[S] {
	f.mu.RLock()
	out := make([]*labeled[S], 0, len(f.series))
	for _, l := range f.series {
		out = append(out, l)
	}
	f.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return slices.Compare(out[i].values, out[j].values) < 0
	})
	return out
}

func (f *family[S]) header(w io.Writer) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", f.name, escapeHelp(f.help))
	_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", f.name, f.kind)
}

// Counter is a monotonically increasing metric.
type Counter struct {
	family[CounterSeries]
}

// CounterSeries is a Counter for one set of label values.
type CounterSeries struct {
	value atomicFloat64
}

// WithLabels returns the series for the given label values, creating it on
// first use.
func (c *Counter) WithLabels(values ...string) (*CounterSeries, error) {
	return c.with(values)
}

// Inc increments a counter without labels.
func (c *Counter) Inc() error {
	s, err := c.with(nil)
	if err != nil {
		return err
	}
	return s.Inc()
}

// Inc increments the series by 1.
func (s *CounterSeries) Inc() error {
	return s.Add(1)
}

// Add adds delta, which must not be negative.
func (s *CounterSeries) Add(delta float64) error {
	if delta < 0 {
		return ErrNegativeCounterValue
	}
	s.value.Add(delta)
	return nil
}

// Value returns the current count.
func (s *CounterSeries) Value() float64 {
	return s.value.Load()
}

func (c *Counter) write(w io.Writer) {
	all := c.snapshot()
	if len(all) == 0 {
		return
	}
	c.header(w)
	for _, l := range all {
		writeSample(w, c.name, c.labelNames, l.values, "", l.series.Value())
	}
}

// Histogram tracks the distribution of observed values in cumulative buckets.
type Histogram struct {
	family[HistogramSeries]
	bounds []float64
}

// HistogramSeries is a Histogram for one set of label values.
type HistogramSeries struct {
	bounds []float64
	counts []atomic.Uint64
	sum    atomicFloat64
	count  atomic.Uint64
}

// WithLabels returns the series for the given label values, creating it on
// first use.
func (h *Histogram) WithLabels(values ...string) (*HistogramSeries, error) {
	return h.with(values)
}

// Observe records a value in a histogram without labels.
func (h *Histogram) Observe(v float64) error {
	s, err := h.with(nil)
	if err != nil {
		return err
	}
	s.Observe(v)
	return nil
}

// Observe records v in the first bucket whose bound is >= v.
func (s *HistogramSeries) Observe(v float64) {
	i := sort.SearchFloat64s(s.bounds, v)
	if i < len(s.counts) {
		s.counts[i].Add(1)
	}
	s.sum.Add(v)
	s.count.Add(1)
}

// Count returns the number of observations.
func (s *HistogramSeries) Count() uint64 {
	return s.count.Load()
}

func (h *Histogram) write(w io.Writer) {
	all := h.snapshot()
	if len(all) == 0 {
		return
	}
	h.header(w)
	for _, l := range all {
		var cumulative uint64
		for i, bound := range l.series.bounds {
			cumulative += l.series.counts[i].Load()
			writeSample(w, h.name+"_bucket", h.labelNames, l.values, formatFloat(bound), float64(cumulative))
		}
		writeSample(w, h.name+"_sum", h.labelNames, l.values, "", l.series.sum.Load())
		writeSample(w, h.name+"_count", h.labelNames, l.values, "", float64(l.series.Count()))
	}
}

// writer is implemented by every metric a Registry can expose.
type writer interface {
	write(w io.Writer)
}

// Registry holds registered metrics in registration order.
type Registry struct {
	mu      sync.RWMutex
	metrics []writer
	names   map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// NewCounter creates and registers a counter.
// It panics if name is already registered.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	c := &Counter{family: family[CounterSeries]{
		name:       name,
		help:       help,
		kind:       "counter",
		labelNames: labels,
		newSeries:  func() *CounterSeries { return &CounterSeries{} },
		series:     make(map[string]*labeled[CounterSeries]),
	}}
	r.register(name, c)
	return c
}

// NewHistogram creates and registers a histogram. A +Inf bucket is always
// added. It panics if name is already registered.
func (r *Registry) NewHistogram(name, help string, buckets []float64, labels ...string) *Histogram {
	bounds := slices.Clone(buckets)
	sort.Float64s(bounds)
	if len(bounds) == 0 || !math.IsInf(bounds[len(bounds)-1], 1) {
		bounds = append(bounds, math.Inf(1))
	}

	h := &Histogram{bounds: bounds}
	h.family = family[HistogramSeries]{
		name:       name,
		help:       help,
		kind:       "histogram",
		labelNames: labels,
		newSeries: func() *HistogramSeries {
			return &HistogramSeries{bounds: bounds, counts: make([]atomic.Uint64, len(bounds))}
		},
		series: make(map[string]*labeled[HistogramSeries]),
	}
	r.register(name, h)
	return h
}

func (r *Registry) register(name string, m writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[name] {
		panic(fmt.Sprintf("%s: %s", ErrDuplicateMetric, name))
	}
	r.names[name] = true
	r.metrics = append(r.metrics, m)
}

// Handler serves the registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		r.WriteText(w)
	})
}

// WriteText writes every metric that has at least one series.
func (r *Registry) WriteText(w io.Writer) {
	r.mu.RLock()
	metrics := slices.Clone(r.metrics)
	r.mu.RUnlock()

	for _, m := range metrics {
		m.write(w)
	}
}

// writeSample writes one line. le, when set, is added as the histogram
// bucket label; labels are emitted in sorted name order.
func writeSample(w io.Writer, name string, labelNames, values []string, le string, v float64) {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(labelNames)+1)
	for i, k := range labelNames {
		pairs = append(pairs, pair{k, values[i]})
	}
	if le != "" {
		pairs = append(pairs, pair{"le", le})
	}
	if len(pairs) == 0 {
		_, _ = fmt.Fprintf(w, "%s %s\n", name, formatFloat(v))
		return
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.k)
		b.WriteString(`="`)
		b.WriteString(escapeLabelValue(p.v))
		b.WriteByte('"')
	}
	_, _ = fmt.Fprintf(w, "%s{%s} %s\n", name, b.String(), formatFloat(v))
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func escapeHelp(s string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(s)
}

func escapeLabelValue(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
