package degrade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/queue"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/keys"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
	"go.uber.org/zap"
)

// RunDegraded answers a call that cannot run normally using the
// dependency's configured fallback strategy. It is invoked proactively
// when health is not healthy and reactively after a failed primary
// attempt (call.Trigger carries the failure). Fallback errors are
// terminal for the call; a fault inside the fallback path itself
// downgrades to a NoFallbackError rather than propagating.
func (m *Manager) RunDegraded(ctx context.Context, name string, call types.CallContext) (result interface{}, err error) {
	m.mu.RLock()
	dep, ok := m.deps[name]
	m.mu.RUnlock()
	if !ok {
		return nil, &UnavailableError{Dependency: name, At: time.Now()}
	}
	cfg := dep.cfg

	if m.tracer != nil {
		var span *tracing.Span
		span, ctx = m.tracer.StartSpan(ctx, "fallback.run")
		span.SetTag("dependency", name)
		span.SetTag("strategy", string(cfg.Strategy))
		// Runs after the recover below, so err carries the final outcome
		defer func() {
			if err != nil {
				span.SetError(err)
			}
			span.Finish()
			m.tracer.Submit(span)
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = &NoFallbackError{
				Dependency: name,
				Strategy:   cfg.Strategy,
				Reason:     fmt.Sprintf("fallback failed: %v", r),
				Trigger:    call.Trigger,
			}
			result = nil
		}
		m.recordFallback(name, cfg.Strategy, err)
	}()

	if m.log != nil {
		m.log.Debug("running degraded",
			zap.String("dependency", name),
			zap.String("strategy", string(cfg.Strategy)),
			zap.Error(call.Trigger))
	}

	switch cfg.Strategy {
	case types.StrategyCachedResponse:
		return m.serveCached(name, cfg, call)
	case types.StrategySimplifiedResponse:
		return m.serveSimplified(name, cfg, call)
	case types.StrategyDefaultResponse:
		return m.serveDefault(name, cfg, call)
	case types.StrategyQueue:
		return m.serveQueued(ctx, name, dep, call)
	case types.StrategyFailFast:
		return nil, &UnavailableError{Dependency: name, At: time.Now()}
	default:
		return nil, &NoFallbackError{
			Dependency: name,
			Strategy:   cfg.Strategy,
			Reason:     "unconfigured fallback strategy",
			Trigger:    call.Trigger,
		}
	}
}

// serveCached returns the last written-through result for the call's
// cache key. Expired entries are misses; freshness is enforced by the
// store.
func (m *Manager) serveCached(name string, cfg types.DependencyConfig, call types.CallContext) (interface{}, error) {
	miss := func(reason string) (interface{}, error) {
		return nil, &NoFallbackError{Dependency: name, Strategy: cfg.Strategy, Reason: reason, Trigger: call.Trigger}
	}
	if m.cache == nil {
		return miss("no cache store configured")
	}
	if call.CacheKey == "" {
		return miss("no cache key supplied")
	}
	value, ok := m.cache.Get(keys.Namespaced(name, call.CacheKey))
	if !ok {
		return miss("no cached response")
	}
	return value, nil
}

// serveSimplified returns the caller-supplied reduced payload verbatim
func (m *Manager) serveSimplified(name string, cfg types.DependencyConfig, call types.CallContext) (interface{}, error) {
	if call.FallbackData == nil {
		return nil, &NoFallbackError{Dependency: name, Strategy: cfg.Strategy, Reason: "no fallback data", Trigger: call.Trigger}
	}
	return call.FallbackData, nil
}

// serveDefault returns the static default from the dependency's
// registration
func (m *Manager) serveDefault(name string, cfg types.DependencyConfig, call types.CallContext) (interface{}, error) {
	if cfg.StaticDefault == nil {
		return nil, &NoFallbackError{Dependency: name, Strategy: cfg.Strategy, Reason: "no default response", Trigger: call.Trigger}
	}
	return cfg.StaticDefault, nil
}

// serveQueued defers the call until the dependency recovers, blocking
// the caller on the drained outcome
func (m *Manager) serveQueued(ctx context.Context, name string, dep *dependency, call types.CallContext) (interface{}, error) {
	if call.Primary == nil {
		return nil, &NoFallbackError{Dependency: name, Strategy: dep.cfg.Strategy, Reason: "no deferred operation", Trigger: call.Trigger}
	}

	item, err := dep.queue.Enqueue(call.Primary, call.Params)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrFull):
			return nil, &QueueFullError{Dependency: name, Depth: dep.cfg.MaxQueueDepth}
		case errors.Is(err, queue.ErrClosed):
			return nil, &UnavailableError{Dependency: name, At: time.Now()}
		default:
			return nil, err
		}
	}

	result, err := item.Wait(ctx)
	if errors.Is(err, queue.ErrClosed) {
		return nil, &UnavailableError{Dependency: name, At: time.Now()}
	}
	return result, err
}

// recordFallback tracks strategy outcomes for the metrics surface
func (m *Manager) recordFallback(name string, strategy types.Strategy, err error) {
	if m.metrics == nil {
		return
	}
	outcome := "served"
	if err != nil {
		outcome = "failed"
	}
	m.metrics.RecordFallback(name, string(strategy), outcome)
}
