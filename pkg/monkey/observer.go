package monkey

import "time"

// Event describes one intercepted request.
type Event struct {
	Method string
	URL    string

	// Rule is the rule that fired, or nil when the request passed through.
	Rule *Rule

	// Err is the error returned to the caller, injected or real.
	Err error

	Elapsed time.Duration
}

// Fired reports whether a rule was selected for the request.
func (e Event) Fired() bool { return e.Rule != nil }

// Observer is notified after every intercepted request. Observe is called from
// the request's goroutine and must be safe for concurrent use.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }
