/*
Package queue defers calls to an unavailable dependency until it
recovers.

Each dependency configured with the queue fallback strategy owns one
bounded FIFO. Enqueue captures the operation and hands back a future;
callers block on the future until a drain executes the operation or
teardown rejects it.

# Drain Semantics

Drain runs queued operations strictly in submission order, one at a
time, pacing executions with a rate limiter so a recovering dependency
is not flooded. Health is re-checked before every item: if the
dependency degrades mid-drain the remainder stays queued for the next
recovery. Only one drain runs per queue at any moment.

# Teardown

Close rejects every queued future with ErrClosed and refuses new
enqueues. The degradation layer maps this rejection onto its service
unavailable error.
*/
package queue
