package dedup

import (
	"context"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/shared/id"
)

// Status represents the lifecycle state of a pending entry
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// entry is one in-flight (or recently settled) execution. At most one
// entry exists per key at any time.
//
// Settlement is a single transition guarded by the coalescer mutex:
// result and err are written exactly once, before done is closed, so
// waiters may read them lock-free after the channel closes.
type entry struct {
	id        id.ExecutionID
	key       string
	status    Status // Protected by the coalescer mutex
	createdAt time.Time
	deadline  time.Time

	timer     *time.Timer        // Timeout timer, stopped on settlement
	cancelRun context.CancelFunc // Stops the underlying operation

	done   chan struct{} // Closed exactly once on settlement
	result interface{}
	err    error

	waiters int // Originator plus subscribers, for diagnostics
}

// settled reports whether the entry has left the pending state.
// Must hold the coalescer mutex.
func (e *entry) settled() bool {
	return e.status != StatusPending
}

// timeoutAfter is the deadline distance the entry was armed with
func (e *entry) timeoutAfter() time.Duration {
	return e.deadline.Sub(e.createdAt)
}
