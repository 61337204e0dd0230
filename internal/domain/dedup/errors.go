package dedup

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is matching
var (
	ErrTimeout   = errors.New("request timed out")
	ErrCapacity  = errors.New("pending request capacity exceeded")
	ErrCancelled = errors.New("request cancelled")
)

// TimeoutError reports a pending entry that exceeded its deadline.
// Terminal for the call; the caller decides whether to retry.
type TimeoutError struct {
	Key   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out after %s", e.Key, e.After)
}

// Is matches ErrTimeout
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// CapacityError reports a pending table at its configured maximum.
// New distinct keys are rejected; subscribing to an existing key is not.
type CapacityError struct {
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("pending request table at capacity (%d)", e.Limit)
}

// Is matches ErrCapacity
func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// CancelledError reports an explicit cancellation, surfaced to every
// waiter on the key
type CancelledError struct {
	Key string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("request %q cancelled", e.Key)
}

// Is matches ErrCancelled
func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }
