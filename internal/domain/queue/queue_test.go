package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendOp(mu *sync.Mutex, order *[]string, name string) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		mu.Lock()
		*order = append(*order, name)
		mu.Unlock()
		return name, nil
	}
}

func TestDrainExecutesInFIFOOrder(t *testing.T) {
	q := New("recommendations", 10, 0)

	var mu sync.Mutex
	var order []string

	itemA, err := q.Enqueue(appendOp(&mu, &order, "A"), map[string]interface{}{"call": "A"})
	require.NoError(t, err)
	itemB, err := q.Enqueue(appendOp(&mu, &order, "B"), map[string]interface{}{"call": "B"})
	require.NoError(t, err)
	itemC, err := q.Enqueue(appendOp(&mu, &order, "C"), map[string]interface{}{"call": "C"})
	require.NoError(t, err)

	drained := q.Drain(context.Background(), nil)
	assert.Equal(t, 3, drained)
	assert.Equal(t, []string{"A", "B", "C"}, order)
	assert.Equal(t, 0, q.Len())

	for i, item := range []*Item{itemA, itemB, itemC} {
		result, err := item.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}[i], result)
	}
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	q := New("recommendations", 2, 0)

	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }

	_, err := q.Enqueue(noop, nil)
	require.NoError(t, err)
	_, err = q.Enqueue(noop, nil)
	require.NoError(t, err)

	_, err = q.Enqueue(noop, nil)
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 2, q.Len())
}

func TestUnboundedDepth(t *testing.T) {
	q := New("recommendations", 0, 0)

	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }
	for i := 0; i < 50; i++ {
		_, err := q.Enqueue(noop, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 50, q.Len())
}

func TestCloseRejectsPendingFutures(t *testing.T) {
	q := New("recommendations", 10, 0)

	noop := func(ctx context.Context) (interface{}, error) { return "unused", nil }

	itemA, err := q.Enqueue(noop, nil)
	require.NoError(t, err)
	itemB, err := q.Enqueue(noop, nil)
	require.NoError(t, err)

	rejected := q.Close()
	assert.Equal(t, 2, rejected)

	for _, item := range []*Item{itemA, itemB} {
		_, err := item.Wait(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
	}

	_, err = q.Enqueue(noop, nil)
	assert.ErrorIs(t, err, ErrClosed)

	assert.Equal(t, 0, q.Close())
}

func TestDrainStopsWhenHealthFlips(t *testing.T) {
	q := New("recommendations", 10, 0)

	var mu sync.Mutex
	var order []string

	for _, name := range []string{"A", "B", "C"} {
		_, err := q.Enqueue(appendOp(&mu, &order, name), nil)
		require.NoError(t, err)
	}

	checks := 0
	healthy := func() bool {
		checks++
		return checks <= 1
	}

	drained := q.Drain(context.Background(), healthy)
	assert.Equal(t, 1, drained)
	assert.Equal(t, []string{"A"}, order)
	assert.Equal(t, 2, q.Len())

	drained = q.Drain(context.Background(), func() bool { return true })
	assert.Equal(t, 2, drained)
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestDrainSingleFlight(t *testing.T) {
	q := New("recommendations", 10, 0)

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := q.Enqueue(func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return nil, nil
	}, nil)
	require.NoError(t, err)

	go q.Drain(context.Background(), nil)
	<-started

	// A second drain while the first is mid-execution is a no-op
	assert.Equal(t, 0, q.Drain(context.Background(), nil))
	close(release)
}

func TestDrainCancelledContextLeavesItemsQueued(t *testing.T) {
	q := New("recommendations", 10, 0)

	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }
	_, err := q.Enqueue(noop, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	drained := q.Drain(ctx, nil)
	assert.Equal(t, 0, drained)
	assert.Equal(t, 1, q.Len())
}

func TestDrainPanicSettlesAsFailure(t *testing.T) {
	q := New("recommendations", 10, 0)

	var mu sync.Mutex
	var order []string

	boom, err := q.Enqueue(func(ctx context.Context) (interface{}, error) {
		panic("queued boom")
	}, nil)
	require.NoError(t, err)
	after, err := q.Enqueue(appendOp(&mu, &order, "after"), nil)
	require.NoError(t, err)

	drained := q.Drain(context.Background(), nil)
	assert.Equal(t, 2, drained)

	_, err = boom.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	result, err := after.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after", result)
}

func TestWaitRespectsCallerContext(t *testing.T) {
	q := New("recommendations", 10, 0)

	_, err := q.Enqueue(func(ctx context.Context) (interface{}, error) { return nil, nil }, nil)
	require.NoError(t, err)

	item, err := q.Enqueue(func(ctx context.Context) (interface{}, error) { return nil, nil }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = item.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Abandoning the future does not remove the item
	assert.Equal(t, 2, q.Len())
}

func TestItemsSnapshot(t *testing.T) {
	q := New("recommendations", 10, 0)

	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }
	first, err := q.Enqueue(noop, nil)
	require.NoError(t, err)
	second, err := q.Enqueue(noop, nil)
	require.NoError(t, err)

	infos := q.Items()
	require.Len(t, infos, 2)
	assert.Equal(t, first.ID().String(), infos[0].ID)
	assert.Equal(t, second.ID().String(), infos[1].ID)
	assert.False(t, infos[0].EnqueuedAt.IsZero())
}

func TestConcurrentEnqueue(t *testing.T) {
	q := New("recommendations", 0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := q.Enqueue(func(ctx context.Context) (interface{}, error) {
				return n, nil
			}, map[string]interface{}{"n": fmt.Sprintf("%d", n)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, q.Len())
	assert.Equal(t, 20, q.Drain(context.Background(), nil))
}

func TestDrainOnClosedQueue(t *testing.T) {
	q := New("recommendations", 10, 0)
	q.Close()
	assert.Equal(t, 0, q.Drain(context.Background(), nil))
}

var errUpstream = errors.New("upstream failed")

func TestDrainPropagatesOperationError(t *testing.T) {
	q := New("recommendations", 10, 0)

	item, err := q.Enqueue(func(ctx context.Context) (interface{}, error) {
		return nil, errUpstream
	}, nil)
	require.NoError(t, err)

	q.Drain(context.Background(), nil)

	_, err = item.Wait(context.Background())
	assert.ErrorIs(t, err, errUpstream)
}
