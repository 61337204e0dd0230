package degrade

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/dedup"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/keys"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

// Do runs a call through the full resilience pipeline. A healthy
// dependency executes the primary operation through its breaker,
// coalesced with concurrent identical calls and written through to
// the cache. A degraded or unhealthy dependency is answered by the
// configured fallback immediately, and a failed primary attempt
// escalates to the same fallback with the failure as trigger.
func (m *Manager) Do(ctx context.Context, name string, call types.CallContext) (interface{}, error) {
	if m.coalescer == nil {
		return nil, fmt.Errorf("no coalescer configured")
	}
	if call.Primary == nil {
		return nil, fmt.Errorf("primary operation is required")
	}

	if health := m.Health(name); health != types.HealthHealthy {
		if call.Trigger == nil {
			call.Trigger = fmt.Errorf("dependency %s is %s", name, health)
		}
		return m.RunDegraded(ctx, name, call)
	}

	key := call.Key
	if key == "" {
		derived, err := keys.Derive(name, call.Params)
		if err != nil {
			return nil, fmt.Errorf("derive deduplication key: %w", err)
		}
		key = derived
	}

	// Cache keys are namespaced per dependency so identical logical
	// keys never collide across dependencies
	var cacheKey string
	if call.CacheKey != "" {
		cacheKey = keys.Namespaced(name, call.CacheKey)
	}

	breaker := m.breakers.GetOrCreate(name)
	primary := call.Primary
	op := func(opCtx context.Context) (interface{}, error) {
		var span *tracing.Span
		if m.tracer != nil {
			span, opCtx = m.tracer.StartSpan(opCtx, "primary.execute")
			span.SetTag("dependency", name)
		}
		result, err := breaker.Execute(func() (interface{}, error) {
			return primary(opCtx)
		})
		if span != nil {
			if err != nil {
				span.SetError(err)
			}
			span.Finish()
			m.tracer.Submit(span)
		}
		return result, err
	}

	result, err := m.coalescer.Execute(ctx, key, op, dedup.Options{
		Timeout:  call.Timeout,
		CacheKey: cacheKey,
	})
	if err == nil {
		return result, nil
	}

	// Coalescer-level outcomes (timeout, capacity, cancellation) and
	// an abandoned wait are terminal for this call. Failures of the
	// operation itself escalate to the fallback path.
	switch {
	case errors.Is(err, dedup.ErrTimeout),
		errors.Is(err, dedup.ErrCapacity),
		errors.Is(err, dedup.ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return nil, err
	}

	call.Trigger = err
	return m.RunDegraded(ctx, name, call)
}
