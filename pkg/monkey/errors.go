package monkey

import "errors"

var (
	// ErrInjectedFailure is returned by the failure fault in place of a real
	// transport error.
	ErrInjectedFailure = errors.New("monkey: injected transport failure")

	// ErrDelayInterrupted is returned when the request context ends while a
	// latency fault is holding the response back.
	ErrDelayInterrupted = errors.New("monkey: delay interrupted")

	// ErrNoCandidates means weighted selection ran over a candidate set whose
	// weights sum to zero. It indicates a broken invariant, not a retryable
	// condition.
	ErrNoCandidates = errors.New("monkey: no selectable rule")

	// ErrInvalidWeight is returned when a rule is built with a weight below 1.
	ErrInvalidWeight = errors.New("monkey: rule weight must be at least 1")

	// ErrUnknownMethod is returned by ParseMethod for verbs outside the
	// supported set.
	ErrUnknownMethod = errors.New("monkey: unknown method")

	// ErrInvalidURL is returned when a rule's URL cannot be parsed.
	ErrInvalidURL = errors.New("monkey: invalid url")

	// ErrNilRule is returned when registering a nil rule.
	ErrNilRule = errors.New("monkey: rule is nil")
)
