package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/cache"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
	"go.uber.org/zap"
)

// Config tunes the coalescer
type Config struct {
	// MaxPending bounds distinct in-flight keys; <= 0 means unbounded
	MaxPending int
	// DefaultTimeout applies when a call does not set Options.Timeout
	DefaultTimeout time.Duration
	// GraceWindow retains settled entries so late identical calls are
	// absorbed into the finished execution instead of re-running it
	GraceWindow time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		MaxPending:     1000,
		DefaultTimeout: 30 * time.Second,
		GraceWindow:    5 * time.Second,
	}
}

// Options adjust a single Execute call
type Options struct {
	// Timeout for this execution; 0 selects Config.DefaultTimeout
	Timeout time.Duration
	// CacheKey enables best-effort write-through of a successful result
	CacheKey string
	// CacheTTL overrides the cache store default; 0 keeps it
	CacheTTL time.Duration
}

// Metrics is the coalescer's monotonic counter snapshot
type Metrics struct {
	TotalRequests        uint64  `json:"total_requests"`
	DeduplicatedRequests uint64  `json:"deduplicated_requests"`
	DeduplicationRate    float64 `json:"deduplication_rate"` // percent
	PendingRequests      int     `json:"pending_requests"`
	Timeouts             uint64  `json:"timeouts"`
	Errors               uint64  `json:"errors"`
	Cancellations        uint64  `json:"cancellations"`
}

// Coalescer deduplicates concurrent identical calls: every caller
// sharing a key while an execution is in flight (or within the grace
// window after it settles) observes that single execution's outcome.
type Coalescer struct {
	mu      sync.Mutex
	entries map[string]*entry // Protected by mu; at most one per key
	pending int               // Entries still in StatusPending

	totalRequests uint64 // Protected by mu
	dedupRequests uint64
	timeouts      uint64
	errors        uint64
	cancellations uint64

	cfg     Config
	store   *cache.Store
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// New creates a coalescer with the given config, applying defaults for
// zero values
func New(cfg Config) *Coalescer {
	def := DefaultConfig()
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	if cfg.GraceWindow < 0 {
		cfg.GraceWindow = def.GraceWindow
	}

	return &Coalescer{
		entries: make(map[string]*entry),
		cfg:     cfg,
	}
}

// WithCache enables result write-through to the given store
func (c *Coalescer) WithCache(store *cache.Store) *Coalescer {
	c.store = store
	return c
}

// WithMetrics adds metrics tracking to the coalescer
func (c *Coalescer) WithMetrics(metrics *monitoring.Metrics) *Coalescer {
	c.metrics = metrics
	return c
}

// WithLogger adds structured logging to the coalescer
func (c *Coalescer) WithLogger(log *logging.Logger) *Coalescer {
	c.log = log
	return c
}

// Execute runs op under key, deduplicating against any in-flight
// execution of the same key. The originator starts the operation; later
// callers subscribe to its settlement and observe the identical result
// or error. The caller's ctx governs only its own wait: cancelling it
// abandons the wait without touching the execution or other waiters.
func (c *Coalescer) Execute(ctx context.Context, key string, op types.Operation, opts Options) (interface{}, error) {
	if key == "" {
		return nil, fmt.Errorf("deduplication key is required")
	}
	if op == nil {
		return nil, fmt.Errorf("operation is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.cfg.DefaultTimeout
	}

	c.mu.Lock()
	c.totalRequests++
	if c.metrics != nil {
		c.metrics.RecordDedupRequest()
	}

	if e, ok := c.entries[key]; ok {
		// Deduplication path: join the existing execution. Settled
		// entries still in the grace window serve their retained
		// outcome immediately.
		c.dedupRequests++
		e.waiters++
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.RecordDeduplicated()
		}
		if c.log != nil {
			c.log.Debug("request coalesced",
				zap.String("key", key),
				zap.String("execution_id", e.id.String()))
		}
		return c.wait(ctx, e)
	}

	if c.cfg.MaxPending > 0 && c.pending >= c.cfg.MaxPending {
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.RecordDedupRejected()
		}
		if c.log != nil {
			c.log.Warn("pending request table at capacity",
				zap.String("key", key),
				zap.Int("max_pending", c.cfg.MaxPending))
		}
		return nil, &CapacityError{Limit: c.cfg.MaxPending}
	}

	now := time.Now()
	runCtx, cancelRun := context.WithCancel(context.Background())
	e := &entry{
		id:        id.NewExecutionID(),
		key:       key,
		status:    StatusPending,
		createdAt: now,
		deadline:  now.Add(timeout),
		cancelRun: cancelRun,
		done:      make(chan struct{}),
		waiters:   1,
	}
	c.entries[key] = e
	c.pending++
	e.timer = time.AfterFunc(timeout, func() { c.expire(e) })
	pending := c.pending
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetPendingRequests(pending)
	}

	go c.run(e, op, runCtx, opts)
	return c.wait(ctx, e)
}

// Cancel rejects every waiter on key with a cancellation error and
// removes the entry, reporting whether a pending entry existed
func (c *Coalescer) Cancel(key string) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.settled() {
		c.mu.Unlock()
		return false
	}
	c.cancelLocked(e)
	pending := c.pending
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordDedupCancelled()
		c.metrics.SetPendingRequests(pending)
	}
	if c.log != nil {
		c.log.Info("request cancelled", zap.String("key", key))
	}
	return true
}

// CancelAll cancels every pending entry and returns how many were
// cancelled. Used during shutdown.
func (c *Coalescer) CancelAll() int {
	c.mu.Lock()
	cancelled := 0
	for _, e := range c.entries {
		if !e.settled() {
			c.cancelLocked(e)
			cancelled++
		}
	}
	pending := c.pending
	c.mu.Unlock()

	if cancelled > 0 {
		if c.metrics != nil {
			c.metrics.SetPendingRequests(pending)
		}
		if c.log != nil {
			c.log.Info("cancelled all pending requests", zap.Int("count", cancelled))
		}
	}
	return cancelled
}

// Metrics returns a snapshot of the coalescer counters
func (c *Coalescer) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rate float64
	if c.totalRequests > 0 {
		rate = float64(c.dedupRequests) / float64(c.totalRequests) * 100
	}

	return Metrics{
		TotalRequests:        c.totalRequests,
		DeduplicatedRequests: c.dedupRequests,
		DeduplicationRate:    rate,
		PendingRequests:      c.pending,
		Timeouts:             c.timeouts,
		Errors:               c.errors,
		Cancellations:        c.cancellations,
	}
}

// Pending returns the number of in-flight executions
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// wait suspends the caller until the entry settles or the caller's own
// context is done. Field reads after done are safe: settlement writes
// happen before the close.
func (c *Coalescer) wait(ctx context.Context, e *entry) (interface{}, error) {
	select {
	case <-e.done:
		return e.result, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run executes the operation and settles the entry with its outcome.
// A panicking operation settles as a failure instead of killing the
// process.
func (c *Coalescer) run(e *entry, op types.Operation, runCtx context.Context, opts Options) {
	defer e.cancelRun()

	result, err := func() (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("operation panicked: %v", r)
			}
		}()
		return op(runCtx)
	}()

	c.settle(e, result, err, opts)
}

// settle applies the operation outcome unless a timeout or cancellation
// already won the race, releases every waiter, writes through to the
// cache on success, and schedules grace-window removal
func (c *Coalescer) settle(e *entry, result interface{}, err error, opts Options) {
	c.mu.Lock()
	if e.settled() {
		// A fired timeout or cancellation always wins; the late
		// outcome is discarded.
		c.mu.Unlock()
		return
	}

	e.timer.Stop()
	if err != nil {
		e.status = StatusFailed
		e.err = err
		c.errors++
	} else {
		e.status = StatusCompleted
		e.result = result
	}
	c.pending--
	pending := c.pending
	waiters := e.waiters
	close(e.done)
	c.mu.Unlock()

	elapsed := time.Since(e.createdAt)
	if c.metrics != nil {
		c.metrics.SetPendingRequests(pending)
		c.metrics.ObserveExecution(elapsed)
		if err != nil {
			c.metrics.RecordDedupError()
		}
	}
	if c.log != nil {
		if err != nil {
			c.log.Debug("execution failed",
				zap.String("key", e.key),
				zap.Int("waiters", waiters),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
		} else {
			c.log.Debug("execution settled",
				zap.String("key", e.key),
				zap.Int("waiters", waiters),
				zap.Duration("elapsed", elapsed))
		}
	}

	if err == nil && opts.CacheKey != "" && c.store != nil {
		// Best-effort write-through; never blocks or fails the call.
		c.store.Set(opts.CacheKey, result, opts.CacheTTL)
	}

	if c.cfg.GraceWindow <= 0 {
		c.remove(e)
		return
	}
	time.AfterFunc(c.cfg.GraceWindow, func() { c.remove(e) })
}

// expire is the timeout path: reject every waiter and drop the entry
// immediately, since a hung operation is not worth retaining
func (c *Coalescer) expire(e *entry) {
	c.mu.Lock()
	if e.settled() {
		c.mu.Unlock()
		return
	}

	e.status = StatusFailed
	e.err = &TimeoutError{Key: e.key, After: e.timeoutAfter()}
	c.timeouts++
	c.pending--
	e.cancelRun()
	close(e.done)
	if cur, ok := c.entries[e.key]; ok && cur == e {
		delete(c.entries, e.key)
	}
	pending := c.pending
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordDedupTimeout()
		c.metrics.SetPendingRequests(pending)
	}
	if c.log != nil {
		c.log.Warn("execution timed out",
			zap.String("key", e.key),
			zap.Duration("timeout", e.timeoutAfter()))
	}
}

// cancelLocked settles an entry as cancelled and removes it.
// Must hold the coalescer mutex.
func (c *Coalescer) cancelLocked(e *entry) {
	e.status = StatusCancelled
	e.err = &CancelledError{Key: e.key}
	e.timer.Stop()
	e.cancelRun()
	c.pending--
	c.cancellations++
	close(e.done)
	delete(c.entries, e.key)
}

// remove drops a settled entry once its grace window ends. The pointer
// comparison protects a successor entry created under the same key.
func (c *Coalescer) remove(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[e.key]; ok && cur == e {
		delete(c.entries, e.key)
	}
}
