package monkey

// Stats tracks fault injection statistics for an Engine.
type Stats struct {
	TotalRequests int64            `json:"totalRequests"`
	PassedThrough int64            `json:"passedThrough"`
	FaultsFired   int64            `json:"faultsFired"`
	Errors        int64            `json:"errors"`
	FiredByRule   map[string]int64 `json:"firedByRule"`
}

// NewStats creates an empty stats tracker.
func NewStats() *Stats {
	return &Stats{
		FiredByRule: make(map[string]int64),
	}
}

func (s *Stats) clone() Stats {
	out := Stats{
		TotalRequests: s.TotalRequests,
		PassedThrough: s.PassedThrough,
		FaultsFired:   s.FaultsFired,
		Errors:        s.Errors,
		FiredByRule:   make(map[string]int64, len(s.FiredByRule)),
	}
	for k, v := range s.FiredByRule {
		out.FiredByRule[k] = v
	}
	return out
}
