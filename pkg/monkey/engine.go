package monkey

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/netmonkey/pkg/logging"
)

// Next hands a request to the real transport and returns its response.
type Next func(req *http.Request) (*http.Response, error)

// Monkey is implemented by Engine and NoOp.
type Monkey interface {
	// RegisterCodeFault adds a rule replacing the response status with code.
	// A zero code means DefaultFaultCode.
	RegisterCodeFault(code int)

	// RegisterLatencyFault adds a rule delaying responses by delay.
	RegisterLatencyFault(delay time.Duration)

	// RegisterFailureFault adds a rule failing requests with ErrInjectedFailure.
	RegisterFailureFault()

	// SetAggressiveMode makes faults fire more often.
	SetAggressiveMode()

	// Intercept runs req through the fault rules and next.
	Intercept(req *http.Request, next Next) (*http.Response, error)
}

// Engine evaluates fault rules against outgoing requests.
//
// An Engine is safe for concurrent use. Registrations become visible to
// interceptions that start after they return.
type Engine struct {
	log            *slog.Logger
	observer       Observer
	completeDelays bool

	// writeMu serializes registrations; readers load the snapshot lock-free.
	writeMu sync.Mutex
	rules   atomic.Pointer[[]*Rule]

	aggressive atomic.Bool
	testMode   atomic.Bool

	rngMu sync.Mutex
	rng   *rand.Rand

	statsMu sync.Mutex
	stats   *Stats
}

var _ Monkey = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for fault diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithSeed seeds the engine's random source so runs are reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// WithTestMode makes the probability gate always pass.
func WithTestMode() Option {
	return func(e *Engine) {
		e.testMode.Store(true)
	}
}

// WithAggressiveMode starts the engine in aggressive mode.
func WithAggressiveMode() Option {
	return func(e *Engine) {
		e.aggressive.Store(true)
	}
}

// WithCompleteDelays makes latency faults registered afterwards always serve
// their full delay, even when the request context is cancelled meanwhile.
func WithCompleteDelays() Option {
	return func(e *Engine) {
		e.completeDelays = true
	}
}

// WithObserver registers an observer notified after every interception.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// New creates an Engine with no rules.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:   logging.Nop(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		stats: NewStats(),
	}
	empty := make([]*Rule, 0)
	e.rules.Store(&empty)

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterCodeFault adds a rule that replaces the status code of any response.
func (e *Engine) RegisterCodeFault(code int) {
	if code == 0 {
		code = DefaultFaultCode
	}
	e.mustRegister(RuleSpec{
		Description: fmt.Sprintf("Return %d on any request", code),
		Response:    ReplaceStatus(code),
	})
}

// RegisterLatencyFault adds a rule that delays any response by delay.
func (e *Engine) RegisterLatencyFault(delay time.Duration) {
	e.mustRegister(RuleSpec{
		Description: fmt.Sprintf("Delay any request by %s", delay),
		Response:    Delay(delay, e.completeDelays),
	})
}

// RegisterFailureFault adds a rule that fails any request.
func (e *Engine) RegisterFailureFault() {
	e.mustRegister(RuleSpec{
		Description: "Fail any request",
		Response:    Fail(),
	})
}

func (e *Engine) mustRegister(spec RuleSpec) {
	rule, err := NewRule(spec)
	if err != nil {
		// Built-in specs always validate.
		panic(fmt.Sprintf("monkey: invalid built-in rule %q: %v", spec.Description, err))
	}
	e.append(rule)
}

// Register adds a caller-built rule.
func (e *Engine) Register(rule *Rule) error {
	if rule == nil {
		return ErrNilRule
	}
	if rule.weight < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidWeight, rule.weight)
	}
	e.append(rule)
	return nil
}

func (e *Engine) append(rule *Rule) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	old := *e.rules.Load()
	next := make([]*Rule, len(old), len(old)+1)
	copy(next, old)
	next = append(next, rule)
	e.rules.Store(&next)

	e.log.Debug("registered monkey rule", "rule", rule.description, "id", rule.id)
}

// Rules returns the registered rules in registration order.
func (e *Engine) Rules() []*Rule {
	rules := *e.rules.Load()
	out := make([]*Rule, len(rules))
	copy(out, rules)
	return out
}

// SetAggressiveMode raises the firing probability from 1 in 10 to 1 in 2.
func (e *Engine) SetAggressiveMode() {
	e.aggressive.Store(true)
}

// EnableTestMode makes every matching request fire a fault.
func (e *Engine) EnableTestMode() {
	e.testMode.Store(true)
}

// Intercept decides whether a fault fires for req, applies it around next and
// returns the result. When nothing fires, the result of next is returned
// untouched.
func (e *Engine) Intercept(req *http.Request, next Next) (*http.Response, error) {
	start := time.Now()

	rules := *e.rules.Load()
	if len(rules) == 0 {
		resp, err := next(req)
		e.record(req, nil, err, start)
		return resp, err
	}

	matching := make([]*Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Matches(req) {
			matching = append(matching, rule)
		}
	}
	if len(matching) == 0 {
		resp, err := next(req)
		e.record(req, nil, err, start)
		return resp, err
	}

	var forced *Rule
	for _, rule := range matching {
		if rule.mandatory {
			forced = rule
			break
		}
	}

	if forced == nil && !e.gatePasses() {
		resp, err := next(req)
		e.record(req, nil, err, start)
		return resp, err
	}

	selected := forced
	if selected == nil {
		picked, err := e.pickWeighted(matching)
		if err != nil {
			e.log.Error("monkey rule selection failed", "error", err)
			e.record(req, nil, err, start)
			return nil, err
		}
		selected = picked
	}

	mutated := selected.ApplyToRequest(req, e.log)

	resp, err := next(mutated)
	if err != nil {
		e.record(req, selected, err, start)
		return resp, err
	}
	if resp != nil && resp.Request == nil {
		resp.Request = mutated
	}

	out, err := selected.ApplyToResponse(resp, e.log)
	e.record(req, selected, err, start)
	return out, err
}

func (e *Engine) record(req *http.Request, fired *Rule, err error, start time.Time) {
	e.statsMu.Lock()
	e.stats.TotalRequests++
	switch {
	case fired != nil:
		e.stats.FaultsFired++
		e.stats.FiredByRule[fired.description]++
	default:
		e.stats.PassedThrough++
	}
	if err != nil {
		e.stats.Errors++
	}
	e.statsMu.Unlock()

	if e.observer == nil {
		return
	}
	ev := Event{
		Method:  req.Method,
		Rule:    fired,
		Err:     err,
		Elapsed: time.Since(start),
	}
	if req.URL != nil {
		ev.URL = req.URL.String()
	}
	e.observer.Observe(ev)
}

// Stats returns a copy of the current statistics.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats.clone()
}

// ResetStats clears the statistics.
func (e *Engine) ResetStats() {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats = NewStats()
}
