package monkey

import "fmt"

// Firing odds when the gate is left to chance: 1 in n.
const (
	defaultOdds    = 10
	aggressiveOdds = 2
)

// gatePasses decides whether a non-mandatory fault fires for this request.
func (e *Engine) gatePasses() bool {
	switch {
	case e.testMode.Load():
		return true
	case e.aggressive.Load():
		return e.intn(aggressiveOdds) == 0
	default:
		return e.intn(defaultOdds) == 0
	}
}

// pickWeighted draws one candidate with probability weight/total.
func (e *Engine) pickWeighted(candidates []*Rule) (*Rule, error) {
	total := 0
	for _, c := range candidates {
		total += c.weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total weight %d over %d candidates", ErrNoCandidates, total, len(candidates))
	}

	draw := e.intn(total)
	cumulative := 0
	for _, c := range candidates {
		cumulative += c.weight
		if draw < cumulative {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: draw %d, total weight %d", ErrNoCandidates, draw, total)
}

func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}
