package degrade

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/cache"
	"github.com/GriffinCanCode/FitOS/backend/internal/domain/dedup"
	"github.com/GriffinCanCode/FitOS/backend/internal/domain/queue"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/id"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultQueueDepth bounds a queue-strategy dependency that does not
// configure its own depth
const DefaultQueueDepth = 100

// dependency pairs an immutable registration with the runtime state it
// owns
type dependency struct {
	id    id.DependencyID
	cfg   types.DependencyConfig
	queue *queue.Queue // Non-nil only under the queue strategy
}

// Manager tracks per-dependency health and applies the configured
// fallback strategy when a dependency cannot serve normally. It owns
// dependency registrations, manual health overrides, and the request
// queues; breaker state and the cache are consulted collaborators.
type Manager struct {
	mu        sync.RWMutex
	deps      map[string]*dependency
	overrides map[string]types.Health
	last      map[string]types.Health // Last observed health, drives event emission
	watchers  []func(types.HealthEvent)

	breakers  *resilience.Registry
	cache     *cache.Store
	coalescer *dedup.Coalescer
	drainRate rate.Limit
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer
	log       *logging.Logger
}

// NewManager creates a degradation manager consulting the given
// breaker registry
func NewManager(breakers *resilience.Registry) *Manager {
	return &Manager{
		deps:      make(map[string]*dependency),
		overrides: make(map[string]types.Health),
		last:      make(map[string]types.Health),
		breakers:  breakers,
	}
}

// WithCache attaches the store consulted by the cached-response
// strategy and populated by primary write-through
func (m *Manager) WithCache(store *cache.Store) *Manager {
	m.cache = store
	return m
}

// WithCoalescer attaches the coalescer the Do facade executes primary
// operations through
func (m *Manager) WithCoalescer(c *dedup.Coalescer) *Manager {
	m.coalescer = c
	return m
}

// WithDrainRate paces queue drains after recovery (items per second)
func (m *Manager) WithDrainRate(r rate.Limit) *Manager {
	m.drainRate = r
	return m
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithTracer adds span collection around primaries, fallbacks, and
// drains
func (m *Manager) WithTracer(tracer *tracing.Tracer) *Manager {
	m.tracer = tracer
	return m
}

// WithLogger adds structured logging to the manager
func (m *Manager) WithLogger(log *logging.Logger) *Manager {
	m.log = log
	return m
}

// Register records a dependency's fallback configuration. The config
// is immutable afterwards; re-registering a name fails.
func (m *Manager) Register(cfg types.DependencyConfig) error {
	if err := utils.ValidateDependencyName(cfg.Name, true); err != nil {
		return err
	}
	if err := utils.ValidatePayload(cfg.StaticDefault, "static default"); err != nil {
		return err
	}
	if !cfg.Strategy.Valid() {
		return fmt.Errorf("unknown fallback strategy: %s", cfg.Strategy)
	}
	if cfg.Strategy == types.StrategyQueue && cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = DefaultQueueDepth
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.deps[cfg.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, cfg.Name)
	}

	dep := &dependency{id: id.NewDependencyID(), cfg: cfg}
	if cfg.Strategy == types.StrategyQueue {
		q := queue.New(cfg.Name, cfg.MaxQueueDepth, m.drainRate)
		if m.metrics != nil {
			q = q.WithMetrics(m.metrics)
		}
		if m.log != nil {
			q = q.WithLogger(m.log)
		}
		dep.queue = q
	}
	m.deps[cfg.Name] = dep

	if m.log != nil {
		m.log.Info("dependency registered",
			zap.String("dependency", cfg.Name),
			zap.String("registration", dep.id.String()),
			zap.String("strategy", string(cfg.Strategy)),
			zap.Int("max_queue_depth", cfg.MaxQueueDepth))
	}
	return nil
}

// RegistrationID returns the identifier assigned when the dependency
// was registered
func (m *Manager) RegistrationID(name string) (id.DependencyID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dep, ok := m.deps[name]
	if !ok {
		return "", false
	}
	return dep.id, true
}

// Teardown removes a dependency: its queue rejects every pending
// future, its breaker and overrides are dropped
func (m *Manager) Teardown(name string) error {
	m.mu.Lock()
	dep, ok := m.deps[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	delete(m.deps, name)
	delete(m.overrides, name)
	delete(m.last, name)
	m.mu.Unlock()

	rejected := 0
	if dep.queue != nil {
		rejected = dep.queue.Close()
	}
	m.breakers.Remove(name)

	if m.log != nil {
		m.log.Info("dependency torn down",
			zap.String("dependency", name),
			zap.Int("rejected_queued", rejected))
	}
	return nil
}

// Config returns the registered configuration for a dependency
func (m *Manager) Config(name string) (types.DependencyConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dep, ok := m.deps[name]
	if !ok {
		return types.DependencyConfig{}, false
	}
	return dep.cfg, true
}

// Dependencies returns the registered dependency names, sorted
func (m *Manager) Dependencies() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.deps))
	for name := range m.deps {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names
}

// QueueDepth reports how many calls are queued for a dependency
func (m *Manager) QueueDepth(name string) int {
	m.mu.RLock()
	dep, ok := m.deps[name]
	m.mu.RUnlock()
	if !ok || dep.queue == nil {
		return 0
	}
	return dep.queue.Len()
}

// QueuedItems returns diagnostic snapshots of a dependency's queued
// calls in FIFO order
func (m *Manager) QueuedItems(name string) []queue.ItemInfo {
	m.mu.RLock()
	dep, ok := m.deps[name]
	m.mu.RUnlock()
	if !ok || dep.queue == nil {
		return nil
	}
	return dep.queue.Items()
}

// DrainQueue executes a dependency's queued calls in FIFO order while
// it stays healthy, returning how many drained
func (m *Manager) DrainQueue(ctx context.Context, name string) (int, error) {
	m.mu.RLock()
	dep, ok := m.deps[name]
	m.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	if dep.queue == nil {
		return 0, nil
	}

	if m.tracer != nil {
		var span *tracing.Span
		span, ctx = m.tracer.StartSpan(ctx, "queue.drain")
		span.SetTag("dependency", name)
		defer func() {
			span.Finish()
			m.tracer.Submit(span)
		}()
	}

	drained := dep.queue.Drain(ctx, func() bool {
		return m.Health(name) == types.HealthHealthy
	})
	if drained > 0 && m.log != nil {
		m.log.Info("queue drained",
			zap.String("dependency", name),
			zap.Int("drained", drained),
			zap.Int("remaining", dep.queue.Len()))
	}
	return drained, nil
}

// triggerDrain starts an asynchronous drain after a recovery
// transition. The drain re-checks health before every item, so a
// dependency that immediately degrades again keeps its backlog.
func (m *Manager) triggerDrain(name string) {
	m.mu.RLock()
	dep, ok := m.deps[name]
	m.mu.RUnlock()
	if !ok || dep.queue == nil || dep.queue.Len() == 0 {
		return
	}
	go func() {
		if _, err := m.DrainQueue(context.Background(), name); err != nil && m.log != nil {
			m.log.Warn("drain after recovery failed",
				zap.String("dependency", name),
				zap.Error(err))
		}
	}()
}
