package types

import "time"

// Strategy selects the fallback behavior applied when a dependency
// cannot serve a call normally
type Strategy string

const (
	StrategyCachedResponse     Strategy = "cached-response"
	StrategySimplifiedResponse Strategy = "simplified-response"
	StrategyDefaultResponse    Strategy = "default-response"
	StrategyQueue              Strategy = "queue"
	StrategyFailFast           Strategy = "fail-fast"
)

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	switch s {
	case StrategyCachedResponse, StrategySimplifiedResponse,
		StrategyDefaultResponse, StrategyQueue, StrategyFailFast:
		return true
	}
	return false
}

// ProbeKind identifies the protocol used to health-check a dependency
type ProbeKind string

const (
	ProbeHTTP ProbeKind = "http"
	ProbeGRPC ProbeKind = "grpc"
)

// ProbeConfig describes how to actively health-check a dependency.
// Optional; dependencies without a probe are judged purely on the
// failures their own calls feed into the breaker.
type ProbeConfig struct {
	Kind     ProbeKind     `json:"kind"`
	Target   string        `json:"target"`             // URL for http, host:port for grpc
	Service  string        `json:"service,omitempty"`  // grpc health service name, empty = overall
	Interval time.Duration `json:"interval,omitempty"` // 0 = prober default
	Timeout  time.Duration `json:"timeout,omitempty"`  // 0 = prober default
}

// DependencyConfig declares a single outbound dependency and its
// degradation policy. Immutable after registration; looked up by name.
type DependencyConfig struct {
	Name          string       `json:"name" binding:"required"`
	Strategy      Strategy     `json:"fallback_strategy" binding:"required"`
	StaticDefault interface{}  `json:"static_default,omitempty"`
	MaxQueueDepth int          `json:"max_queue_depth,omitempty"`
	Probe         *ProbeConfig `json:"probe,omitempty"`
}
