package probe

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

const (
	// DefaultInterval is the base probe cadence when a dependency does
	// not declare its own.
	DefaultInterval = 15 * time.Second

	// DefaultTimeout bounds a single probe attempt.
	DefaultTimeout = 3 * time.Second

	// maxConcurrentProbes caps how many dependencies are probed at once
	// during a sweep.
	maxConcurrentProbes = 8
)

// Manager is the subset of the degradation manager the prober relies on.
type Manager interface {
	Dependencies() []string
	Config(name string) (types.DependencyConfig, bool)
	Observe(name string) types.Health
}

// Checker performs a single health probe against a dependency endpoint.
type Checker interface {
	Check(ctx context.Context, cfg types.ProbeConfig) error
}

// Prober periodically probes registered dependencies and feeds the
// results through their circuit breakers, so probe traffic trips and
// heals breakers the same way caller traffic does.
type Prober struct {
	manager  Manager
	registry *resilience.Registry
	checkers map[types.ProbeKind]Checker
	interval time.Duration
	timeout  time.Duration
	stop     chan struct{}
	kick     chan string
	wg       sync.WaitGroup
	halt     sync.Once
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// New creates a prober with the built-in HTTP and gRPC checkers.
func New(manager Manager, registry *resilience.Registry, interval, timeout time.Duration) *Prober {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Prober{
		manager:  manager,
		registry: registry,
		checkers: map[types.ProbeKind]Checker{
			types.ProbeHTTP: NewHTTPChecker(),
			types.ProbeGRPC: NewGRPCChecker(),
		},
		interval: interval,
		timeout:  timeout,
		stop:     make(chan struct{}),
		kick:     make(chan string, 16),
	}
}

// WithChecker replaces the checker for a probe kind
func (p *Prober) WithChecker(kind types.ProbeKind, c Checker) *Prober {
	p.checkers[kind] = c
	return p
}

// WithMetrics adds metrics tracking to the prober
func (p *Prober) WithMetrics(metrics *monitoring.Metrics) *Prober {
	p.metrics = metrics
	return p
}

// WithLogger adds structured logging to the prober
func (p *Prober) WithLogger(log *logging.Logger) *Prober {
	p.log = log
	return p
}

// Start begins the probe loop
func (p *Prober) Start() {
	p.wg.Add(1)
	go p.loop()

	if p.log != nil {
		p.log.Info("Prober started",
			zap.Duration("interval", p.interval),
			zap.Duration("timeout", p.timeout))
	}
}

// Stop halts the probe loop, waits for in-flight probes, and closes
// any checkers holding connections. Safe to call more than once.
func (p *Prober) Stop() {
	p.halt.Do(func() {
		close(p.stop)
		p.wg.Wait()

		for _, c := range p.checkers {
			if closer, ok := c.(io.Closer); ok {
				_ = closer.Close()
			}
		}

		if p.log != nil {
			p.log.Info("Prober stopped")
		}
	})
}

// Kick schedules an immediate probe for a dependency, ahead of its
// regular cadence. Non-blocking; drops the request if the queue is full.
func (p *Prober) Kick(name string) {
	select {
	case p.kick <- name:
	default:
		if p.log != nil {
			p.log.Debug("Probe kick dropped", zap.String("dependency", name))
		}
	}
}

func (p *Prober) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Per-dependency next-due times, owned by this goroutine.
	nextDue := make(map[string]time.Time)

	// Probe once up front so health settles before the first tick.
	p.sweep(nextDue)

	for {
		select {
		case <-ticker.C:
			p.sweep(nextDue)
		case name := <-p.kick:
			p.probe(name)
			if cfg, ok := p.manager.Config(name); ok && cfg.Probe != nil {
				nextDue[name] = time.Now().Add(p.effectiveInterval(cfg.Probe))
			}
		case <-p.stop:
			return
		}
	}
}

// sweep probes every dependency whose per-dependency interval has
// elapsed. Probes run concurrently but the sweep waits for all of them,
// so sweeps never overlap.
func (p *Prober) sweep(nextDue map[string]time.Time) {
	now := time.Now()
	names := p.manager.Dependencies()

	live := make(map[string]struct{}, len(names))
	var due []string

	for _, name := range names {
		live[name] = struct{}{}

		cfg, ok := p.manager.Config(name)
		if !ok || cfg.Probe == nil {
			continue
		}
		if t, ok := nextDue[name]; ok && now.Before(t) {
			continue
		}

		due = append(due, name)
		nextDue[name] = now.Add(p.effectiveInterval(cfg.Probe))
	}

	// Drop entries for dependencies torn down since the last sweep.
	for name := range nextDue {
		if _, ok := live[name]; !ok {
			delete(nextDue, name)
		}
	}

	if len(due) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentProbes)

	for _, name := range due {
		name := name
		g.Go(func() error {
			p.probe(name)
			return nil
		})
	}

	// Probe failures are reported through the breakers, never as group
	// errors, so one flaky dependency cannot abort the sweep.
	_ = g.Wait()
}

// probe runs a single health check through the dependency's breaker and
// refreshes its observed health.
func (p *Prober) probe(name string) {
	cfg, ok := p.manager.Config(name)
	if !ok || cfg.Probe == nil {
		return
	}

	checker, ok := p.checkers[cfg.Probe.Kind]
	if !ok {
		if p.log != nil {
			p.log.Warn("No checker for probe kind",
				zap.String("dependency", name),
				zap.String("kind", string(cfg.Probe.Kind)))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.effectiveTimeout(cfg.Probe))
	defer cancel()

	breaker := p.registry.GetOrCreate(name)
	_, err := breaker.Execute(func() (interface{}, error) {
		return nil, checker.Check(ctx, *cfg.Probe)
	})

	switch {
	case err == resilience.ErrCircuitOpen || err == resilience.ErrTooManyRequests:
		// The breaker rejected the attempt; nothing was probed. Once the
		// open timeout lapses the breaker half-opens and the next probe
		// goes through.
		if p.log != nil {
			p.log.Debug("Probe skipped by breaker", zap.String("dependency", name))
		}
	case err != nil:
		if p.metrics != nil {
			p.metrics.RecordProbe(name, string(cfg.Probe.Kind), false)
		}
		if p.log != nil {
			p.log.Warn("Probe failed",
				zap.String("dependency", name),
				zap.String("target", cfg.Probe.Target),
				zap.Error(err))
		}
	default:
		if p.metrics != nil {
			p.metrics.RecordProbe(name, string(cfg.Probe.Kind), true)
		}
		if p.log != nil {
			p.log.Debug("Probe succeeded", zap.String("dependency", name))
		}
	}

	p.manager.Observe(name)
}

func (p *Prober) effectiveInterval(pc *types.ProbeConfig) time.Duration {
	if pc.Interval > 0 {
		return pc.Interval
	}
	return p.interval
}

func (p *Prober) effectiveTimeout(pc *types.ProbeConfig) time.Duration {
	if pc.Timeout > 0 {
		return pc.Timeout
	}
	return p.timeout
}
