package resilience

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state as its string form
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Counts holds the statistics for the circuit breaker
type Counts struct {
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
}

// Stats is the read contract consumers use to judge a dependency:
// the breaker's current state and its recent failure count.
// ConsecutiveFailures serves as the recency signal; it resets on the
// first success.
type Stats struct {
	State        State  `json:"state"`
	FailureCount uint32 `json:"failure_count"`
}
