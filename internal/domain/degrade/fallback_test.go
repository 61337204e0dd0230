package degrade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/cache"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/keys"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream exploded")

func TestCachedResponseServesStoredValue(t *testing.T) {
	store := cache.NewStore(100, time.Minute)
	m := NewManager(testRegistry()).WithCache(store)
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:     "recommendations",
		Strategy: types.StrategyCachedResponse,
	}))

	plan := map[string]interface{}{"workout": "full_body", "sets": 5}
	store.Set(keys.Namespaced("recommendations", "user:42"), plan, 0)

	invoked := false
	result, err := m.RunDegraded(context.Background(), "recommendations", types.CallContext{
		CacheKey: "user:42",
		Primary: func(ctx context.Context) (interface{}, error) {
			invoked = true
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, plan, result)
	assert.False(t, invoked, "cached fallback must not invoke the primary")
}

func TestCachedResponseMisses(t *testing.T) {
	store := cache.NewStore(100, time.Minute)
	m := NewManager(testRegistry()).WithCache(store)
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:     "recommendations",
		Strategy: types.StrategyCachedResponse,
	}))

	tests := []struct {
		name   string
		call   types.CallContext
		reason string
	}{
		{"no cache key", types.CallContext{}, "no cache key supplied"},
		{"empty cache", types.CallContext{CacheKey: "user:99"}, "no cached response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.RunDegraded(context.Background(), "recommendations", tt.call)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoFallback)

			var noFallback *NoFallbackError
			require.ErrorAs(t, err, &noFallback)
			assert.Equal(t, tt.reason, noFallback.Reason)
			assert.Equal(t, types.StrategyCachedResponse, noFallback.Strategy)
		})
	}
}

func TestCachedResponseExpiredIsMiss(t *testing.T) {
	store := cache.NewStore(100, time.Minute)
	m := NewManager(testRegistry()).WithCache(store)
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:     "recommendations",
		Strategy: types.StrategyCachedResponse,
	}))

	store.Set(keys.Namespaced("recommendations", "user:42"), "stale", 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	_, err := m.RunDegraded(context.Background(), "recommendations", types.CallContext{CacheKey: "user:42"})
	require.Error(t, err)

	var noFallback *NoFallbackError
	require.ErrorAs(t, err, &noFallback)
	assert.Equal(t, "no cached response", noFallback.Reason)
}

func TestSimplifiedResponse(t *testing.T) {
	m := NewManager(testRegistry())
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:     "recommendations",
		Strategy: types.StrategySimplifiedResponse,
	}))

	simplified := []string{"squat", "bench", "deadlift"}
	result, err := m.RunDegraded(context.Background(), "recommendations", types.CallContext{
		FallbackData: simplified,
	})
	require.NoError(t, err)
	assert.Equal(t, simplified, result)

	_, err = m.RunDegraded(context.Background(), "recommendations", types.CallContext{})
	require.Error(t, err)

	var noFallback *NoFallbackError
	require.ErrorAs(t, err, &noFallback)
	assert.Equal(t, "no fallback data", noFallback.Reason)
}

func TestDefaultResponseWithOpenBreaker(t *testing.T) {
	reg := testRegistry()
	m := NewManager(reg)
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:          "pricing",
		Strategy:      types.StrategyDefaultResponse,
		StaticDefault: map[string]interface{}{"rate": 0},
	}))

	failTimes(t, reg, "pricing", 3)
	require.Equal(t, types.HealthUnhealthy, m.Health("pricing"))

	result, err := m.RunDegraded(context.Background(), "pricing", types.CallContext{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"rate": 0}, result)
}

func TestDefaultResponseMissing(t *testing.T) {
	m := NewManager(testRegistry())
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:     "pricing",
		Strategy: types.StrategyDefaultResponse,
	}))

	_, err := m.RunDegraded(context.Background(), "pricing", types.CallContext{})
	require.Error(t, err)

	var noFallback *NoFallbackError
	require.ErrorAs(t, err, &noFallback)
	assert.Equal(t, "no default response", noFallback.Reason)
}

func TestFailFast(t *testing.T) {
	m := NewManager(testRegistry())
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:     "analytics",
		Strategy: types.StrategyFailFast,
	}))

	_, err := m.RunDegraded(context.Background(), "analytics", types.CallContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "analytics", unavailable.Dependency)
	assert.WithinDuration(t, time.Now(), unavailable.At, time.Second)
}

func TestQueueFullRejects(t *testing.T) {
	m := NewManager(testRegistry())
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:          "analytics",
		Strategy:      types.StrategyQueue,
		MaxQueueDepth: 1,
	}))
	require.NoError(t, m.SetHealth("analytics", types.HealthUnhealthy))

	go func() {
		_, _ = m.RunDegraded(context.Background(), "analytics", types.CallContext{
			Primary: func(ctx context.Context) (interface{}, error) { return nil, nil },
		})
	}()
	require.Eventually(t, func() bool { return m.QueueDepth("analytics") == 1 },
		time.Second, 5*time.Millisecond)

	_, err := m.RunDegraded(context.Background(), "analytics", types.CallContext{
		Primary: func(ctx context.Context) (interface{}, error) { return nil, nil },
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueueFull)

	var full *QueueFullError
	require.ErrorAs(t, err, &full)
	assert.Equal(t, "analytics", full.Dependency)
	assert.Equal(t, 1, full.Depth)

	require.NoError(t, m.Teardown("analytics"))
}

func TestQueueWithoutDeferredOperation(t *testing.T) {
	m := NewManager(testRegistry())
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:     "analytics",
		Strategy: types.StrategyQueue,
	}))

	_, err := m.RunDegraded(context.Background(), "analytics", types.CallContext{})
	require.Error(t, err)

	var noFallback *NoFallbackError
	require.ErrorAs(t, err, &noFallback)
	assert.Equal(t, "no deferred operation", noFallback.Reason)
}

func TestQueueDrainsInSubmissionOrder(t *testing.T) {
	m := NewManager(testRegistry())
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:          "analytics",
		Strategy:      types.StrategyQueue,
		MaxQueueDepth: 5,
	}))
	require.NoError(t, m.SetHealth("analytics", types.HealthUnhealthy))

	var mu sync.Mutex
	var order []string

	type outcome struct {
		label  string
		result interface{}
		err    error
	}
	outcomes := make(chan outcome, 3)

	// Enqueue A, B, C strictly in that order by waiting for each to land
	for i, label := range []string{"A", "B", "C"} {
		label := label
		go func() {
			result, err := m.RunDegraded(context.Background(), "analytics", types.CallContext{
				Params: map[string]interface{}{"event": label},
				Primary: func(ctx context.Context) (interface{}, error) {
					mu.Lock()
					order = append(order, label)
					mu.Unlock()
					return "done-" + label, nil
				},
			})
			outcomes <- outcome{label: label, result: result, err: err}
		}()
		want := i + 1
		require.Eventually(t, func() bool { return m.QueueDepth("analytics") == want },
			time.Second, 5*time.Millisecond)
	}

	require.NoError(t, m.SetHealth("analytics", types.HealthHealthy))

	for i := 0; i < 3; i++ {
		select {
		case o := <-outcomes:
			require.NoError(t, o.err)
			assert.Equal(t, "done-"+o.label, o.result)
		case <-time.After(2 * time.Second):
			t.Fatal("queued call did not settle after recovery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestUnregisteredDependencyUnavailable(t *testing.T) {
	m := NewManager(testRegistry())

	_, err := m.RunDegraded(context.Background(), "ghost", types.CallContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUnknownStrategyDowngrades(t *testing.T) {
	m := NewManager(testRegistry())

	// Corrupt a registration directly; Register would reject this
	m.deps["broken"] = &dependency{cfg: types.DependencyConfig{Name: "broken", Strategy: "telepathy"}}

	_, err := m.RunDegraded(context.Background(), "broken", types.CallContext{})
	require.Error(t, err)

	var noFallback *NoFallbackError
	require.ErrorAs(t, err, &noFallback)
	assert.Equal(t, "unconfigured fallback strategy", noFallback.Reason)
}

func TestNoFallbackCarriesTrigger(t *testing.T) {
	m := NewManager(testRegistry())
	require.NoError(t, m.Register(types.DependencyConfig{
		Name:     "pricing",
		Strategy: types.StrategyDefaultResponse,
	}))

	_, err := m.RunDegraded(context.Background(), "pricing", types.CallContext{Trigger: errUpstream})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFallback)
	assert.ErrorIs(t, err, errUpstream, "trigger should unwrap")
	assert.Contains(t, err.Error(), fmt.Sprintf("no fallback available for %s", "pricing"))
}
