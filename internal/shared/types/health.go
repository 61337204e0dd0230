package types

import "time"

// Health represents the operational health of a dependency
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// Valid reports whether h is a known health value
func (h Health) Valid() bool {
	switch h {
	case HealthHealthy, HealthDegraded, HealthUnhealthy:
		return true
	}
	return false
}

// Level maps health to a numeric severity (0=healthy, 1=degraded, 2=unhealthy)
// for gauges and comparisons
func (h Health) Level() int {
	switch h {
	case HealthHealthy:
		return 0
	case HealthDegraded:
		return 1
	case HealthUnhealthy:
		return 2
	}
	return 2
}

// HealthEvent records a single health transition for a dependency
type HealthEvent struct {
	Dependency string    `json:"dependency"`
	From       Health    `json:"from"`
	To         Health    `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}
