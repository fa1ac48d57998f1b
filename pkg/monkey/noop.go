package monkey

import (
	"net/http"
	"time"
)

// NoOp is a Monkey that never injects anything. Requests go straight to next.
type NoOp struct{}

var _ Monkey = NoOp{}

func (NoOp) RegisterCodeFault(int)              {}
func (NoOp) RegisterLatencyFault(time.Duration) {}
func (NoOp) RegisterFailureFault()              {}
func (NoOp) SetAggressiveMode()                 {}

// Intercept calls next(req).
func (NoOp) Intercept(req *http.Request, next Next) (*http.Response, error) {
	return next(req)
}
