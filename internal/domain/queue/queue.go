package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrFull rejects an enqueue once the queue holds its configured
	// maximum of deferred calls
	ErrFull = errors.New("queue is full")
	// ErrClosed settles every remaining future when the dependency is
	// torn down
	ErrClosed = errors.New("queue is closed")
)

// Item is one deferred call: its operation, payload for diagnostics,
// and the future its enqueuer waits on
type Item struct {
	id         id.QueueItemID
	op         types.Operation
	payload    map[string]interface{}
	enqueuedAt time.Time

	done   chan struct{} // Closed exactly once when the item settles
	result interface{}
	err    error
}

// ID returns the item identifier
func (i *Item) ID() id.QueueItemID { return i.id }

// Wait suspends until the item settles or the caller's context is done
func (i *Item) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-i.done:
		return i.result, i.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settle resolves the future. Each item settles exactly once: either
// the drain loop executes it or Close rejects it, never both.
func (i *Item) settle(result interface{}, err error) {
	i.result = result
	i.err = err
	close(i.done)
}

// ItemInfo is a diagnostic snapshot of a queued item
type ItemInfo struct {
	ID         string    `json:"id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue is a bounded per-dependency FIFO of deferred calls. Items wait
// until health recovers, then drain strictly in submission order.
type Queue struct {
	mu       sync.Mutex
	items    []*Item // Protected by mu; head at index 0
	closed   bool
	draining bool

	name    string
	depth   int
	limiter *rate.Limiter // Paces drain executions after recovery
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// New creates a queue for one dependency. depth bounds the queue;
// drainRate paces executions during a drain (<= 0 disables pacing).
func New(name string, depth int, drainRate rate.Limit) *Queue {
	if drainRate <= 0 {
		drainRate = rate.Inf
	}
	return &Queue{
		name:    name,
		depth:   depth,
		limiter: rate.NewLimiter(drainRate, 1),
	}
}

// WithMetrics adds metrics tracking to the queue
func (q *Queue) WithMetrics(metrics *monitoring.Metrics) *Queue {
	q.metrics = metrics
	return q
}

// WithLogger adds structured logging to the queue
func (q *Queue) WithLogger(log *logging.Logger) *Queue {
	q.log = log
	return q
}

// Enqueue defers op until the next drain and returns its future.
// Fails with ErrFull at capacity and ErrClosed after teardown.
func (q *Queue) Enqueue(op types.Operation, payload map[string]interface{}) (*Item, error) {
	if op == nil {
		return nil, fmt.Errorf("operation is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}
	if q.depth > 0 && len(q.items) >= q.depth {
		return nil, ErrFull
	}

	item := &Item{
		id:         id.NewQueueItemID(),
		op:         op,
		payload:    payload,
		enqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}
	q.items = append(q.items, item)

	if q.metrics != nil {
		q.metrics.SetQueueDepth(q.name, len(q.items))
	}
	if q.log != nil {
		q.log.Debug("call queued",
			zap.String("dependency", q.name),
			zap.String("item_id", item.id.String()),
			zap.Int("depth", len(q.items)))
	}
	return item, nil
}

// Len returns the number of queued items
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns diagnostic snapshots of the queued items in order
func (q *Queue) Items() []ItemInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	infos := make([]ItemInfo, len(q.items))
	for i, item := range q.items {
		infos[i] = ItemInfo{ID: item.id.String(), EnqueuedAt: item.enqueuedAt}
	}
	return infos
}

// Drain executes queued items strictly in FIFO order, settling each
// future with its outcome. healthy is consulted before every item;
// when it reports false the drain stops and the remainder stays
// queued. Only one drain runs at a time; concurrent calls return 0.
func (q *Queue) Drain(ctx context.Context, healthy func() bool) int {
	q.mu.Lock()
	if q.draining || q.closed {
		q.mu.Unlock()
		return 0
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	drained := 0
	for {
		if ctx.Err() != nil {
			return drained
		}
		if healthy != nil && !healthy() {
			if q.log != nil {
				q.log.Info("drain paused, dependency no longer healthy",
					zap.String("dependency", q.name),
					zap.Int("drained", drained),
					zap.Int("remaining", q.Len()))
			}
			return drained
		}

		q.mu.Lock()
		if q.closed || len(q.items) == 0 {
			q.mu.Unlock()
			return drained
		}
		item := q.items[0]
		q.items = q.items[1:]
		if q.metrics != nil {
			q.metrics.SetQueueDepth(q.name, len(q.items))
		}
		q.mu.Unlock()

		if err := q.limiter.Wait(ctx); err != nil {
			q.requeue(item)
			return drained
		}

		result, err := q.execute(ctx, item)
		item.settle(result, err)
		drained++

		if q.log != nil {
			q.log.Debug("queued call drained",
				zap.String("dependency", q.name),
				zap.String("item_id", item.id.String()),
				zap.Error(err))
		}
	}
}

// requeue restores an unexecuted item to the head of the queue so the
// next drain picks it up first. If the queue closed in the meantime
// the item is rejected instead.
func (q *Queue) requeue(item *Item) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		item.settle(nil, ErrClosed)
		return
	}
	q.items = append([]*Item{item}, q.items...)
	if q.metrics != nil {
		q.metrics.SetQueueDepth(q.name, len(q.items))
	}
	q.mu.Unlock()
}

// execute runs one item's operation, converting a panic into a failed
// settlement
func (q *Queue) execute(ctx context.Context, item *Item) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queued operation panicked: %v", r)
		}
	}()
	return item.op(ctx)
}

// Close tears the queue down: every remaining future is rejected with
// ErrClosed and further enqueues fail. Returns how many items were
// rejected.
func (q *Queue) Close() int {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	q.closed = true
	rejected := q.items
	q.items = nil
	if q.metrics != nil {
		q.metrics.SetQueueDepth(q.name, 0)
	}
	q.mu.Unlock()

	for _, item := range rejected {
		item.settle(nil, ErrClosed)
	}

	if len(rejected) > 0 && q.log != nil {
		q.log.Warn("queue closed with items pending",
			zap.String("dependency", q.name),
			zap.Int("rejected", len(rejected)))
	}
	return len(rejected)
}
