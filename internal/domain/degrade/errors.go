package degrade

import (
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

var (
	// ErrNoFallback matches every fallback miss regardless of strategy
	ErrNoFallback = errors.New("no fallback available")
	// ErrUnavailable matches fail-fast rejections and queue teardown
	ErrUnavailable = errors.New("service unavailable")
	// ErrQueueFull matches rejections from a saturated request queue
	ErrQueueFull = errors.New("queue full")
	// ErrNotRegistered matches operations against unknown dependencies
	ErrNotRegistered = errors.New("dependency not registered")
	// ErrAlreadyRegistered matches re-registration of a known name
	ErrAlreadyRegistered = errors.New("dependency already registered")
)

// NoFallbackError reports that the configured strategy had nothing to
// serve. Reason distinguishes an empty cache from a missing default so
// operators can tell the two apart.
type NoFallbackError struct {
	Dependency string
	Strategy   types.Strategy
	Reason     string
	Trigger    error
}

func (e *NoFallbackError) Error() string {
	return fmt.Sprintf("no fallback available for %s (%s): %s", e.Dependency, e.Strategy, e.Reason)
}

// Is reports whether target matches the no-fallback class
func (e *NoFallbackError) Is(target error) bool {
	return target == ErrNoFallback
}

// Unwrap exposes the primary failure that triggered the fallback
func (e *NoFallbackError) Unwrap() error {
	return e.Trigger
}

// UnavailableError is the terminal answer of the fail-fast strategy
// and of queue teardown
type UnavailableError struct {
	Dependency string
	At         time.Time
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("service %s unavailable at %s", e.Dependency, e.At.Format(time.RFC3339))
}

// Is reports whether target matches the unavailable class
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// QueueFullError rejects a queue-strategy call once the dependency's
// queue holds its configured maximum
type QueueFullError struct {
	Dependency string
	Depth      int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("queue full for %s (depth %d)", e.Dependency, e.Depth)
}

// Is reports whether target matches the queue-full class
func (e *QueueFullError) Is(target error) bool {
	return target == ErrQueueFull
}
