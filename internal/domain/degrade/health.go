package degrade

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
	"go.uber.org/zap"
)

// Health derives a dependency's operational health on demand. A manual
// override wins; otherwise breaker state maps to health: open is
// unhealthy, half-open is degraded, closed is degraded while recent
// failures remain and healthy at zero. Callers must not cache the
// value beyond a single decision.
func (m *Manager) Health(name string) types.Health {
	health, _ := m.evaluate(name)
	return health
}

// HealthDetail returns health together with the reason string used in
// event payloads
func (m *Manager) HealthDetail(name string) (types.Health, string) {
	return m.evaluate(name)
}

// evaluate computes health plus a human-readable reason for event
// payloads
func (m *Manager) evaluate(name string) (types.Health, string) {
	m.mu.RLock()
	override, ok := m.overrides[name]
	m.mu.RUnlock()
	if ok {
		return override, "manual override"
	}

	stats := m.breakers.Stats(name)
	switch stats.State {
	case resilience.StateOpen:
		return types.HealthUnhealthy, "circuit open"
	case resilience.StateHalfOpen:
		return types.HealthDegraded, "circuit half-open"
	default:
		if stats.FailureCount > 0 {
			return types.HealthDegraded, fmt.Sprintf("%d recent failures", stats.FailureCount)
		}
		return types.HealthHealthy, "circuit closed"
	}
}

// Observe recomputes health and publishes a HealthEvent if it changed
// since the last observation. A transition back to healthy triggers an
// asynchronous drain of the dependency's queue.
func (m *Manager) Observe(name string) types.Health {
	health, reason := m.evaluate(name)

	m.mu.Lock()
	prev, seen := m.last[name]
	if !seen {
		// Every dependency starts out assumed healthy
		prev = types.HealthHealthy
	}
	changed := health != prev
	m.last[name] = health
	watchers := make([]func(types.HealthEvent), len(m.watchers))
	copy(watchers, m.watchers)
	m.mu.Unlock()

	if !changed {
		return health
	}

	event := types.HealthEvent{
		Dependency: name,
		From:       prev,
		To:         health,
		Reason:     reason,
		At:         time.Now(),
	}
	for _, watch := range watchers {
		watch(event)
	}
	if m.metrics != nil {
		m.metrics.SetDependencyHealth(name, health.Level())
	}
	if m.log != nil {
		m.log.Info("dependency health changed",
			zap.String("dependency", name),
			zap.String("from", string(prev)),
			zap.String("to", string(health)),
			zap.String("reason", reason))
	}

	if health == types.HealthHealthy {
		m.triggerDrain(name)
	}
	return health
}

// SetHealth pins a dependency's health, overriding breaker-derived
// state until ClearHealth. Intended for operational intervention.
func (m *Manager) SetHealth(name string, health types.Health) error {
	if !health.Valid() {
		return fmt.Errorf("invalid health value: %s", health)
	}

	m.mu.Lock()
	_, registered := m.deps[name]
	if !registered {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	m.overrides[name] = health
	m.mu.Unlock()

	m.Observe(name)
	return nil
}

// ClearHealth removes a manual override, returning the dependency to
// breaker-derived health
func (m *Manager) ClearHealth(name string) error {
	m.mu.Lock()
	_, ok := m.overrides[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("no health override for: %s", name)
	}
	delete(m.overrides, name)
	m.mu.Unlock()

	m.Observe(name)
	return nil
}

// Override returns the manual health override for a dependency, if set
func (m *Manager) Override(name string) (types.Health, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	health, ok := m.overrides[name]
	return health, ok
}

// Watch registers a callback invoked on every health transition.
// Callbacks run synchronously on the observing goroutine and must not
// block.
func (m *Manager) Watch(fn func(types.HealthEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}
