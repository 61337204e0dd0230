package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/FitOS/backend/internal/domain/degrade"
	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
)

var errProbeDown = errors.New("endpoint down")

// scriptChecker is a Checker whose outcome tests flip at will.
type scriptChecker struct {
	mu     sync.Mutex
	calls  int
	err    error
	closed int
}

func (s *scriptChecker) Check(ctx context.Context, cfg types.ProbeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *scriptChecker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *scriptChecker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptChecker) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func testRegistry(openTimeout time.Duration) *resilience.Registry {
	return resilience.NewRegistry(resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

func testProber(t *testing.T, openTimeout time.Duration) (*Prober, *degrade.Manager, *resilience.Registry, *scriptChecker) {
	t.Helper()

	registry := testRegistry(openTimeout)
	manager := degrade.NewManager(registry)
	checker := &scriptChecker{}

	prober := New(manager, registry, time.Minute, time.Second).
		WithChecker(types.ProbeHTTP, checker)

	return prober, manager, registry, checker
}

func registerProbed(t *testing.T, manager *degrade.Manager, name string, interval time.Duration) {
	t.Helper()

	err := manager.Register(types.DependencyConfig{
		Name:     name,
		Strategy: types.StrategyFailFast,
		Probe: &types.ProbeConfig{
			Kind:     types.ProbeHTTP,
			Target:   "http://" + name + ".internal/healthz",
			Interval: interval,
		},
	})
	require.NoError(t, err)
}

func TestProbeSuccessKeepsHealthy(t *testing.T) {
	prober, manager, _, checker := testProber(t, time.Minute)
	registerProbed(t, manager, "pricing", 0)

	prober.probe("pricing")

	assert.Equal(t, 1, checker.count())
	assert.Equal(t, types.HealthHealthy, manager.Health("pricing"))
}

func TestProbeFailuresTripBreaker(t *testing.T) {
	prober, manager, registry, checker := testProber(t, time.Minute)
	registerProbed(t, manager, "pricing", 0)
	checker.fail(errProbeDown)

	for i := 0; i < 3; i++ {
		prober.probe("pricing")
	}

	assert.Equal(t, 3, checker.count())
	assert.Equal(t, resilience.StateOpen, registry.Stats("pricing").State)
	assert.Equal(t, types.HealthUnhealthy, manager.Health("pricing"))

	// While the breaker is open the checker is not invoked at all.
	prober.probe("pricing")
	assert.Equal(t, 3, checker.count())
}

func TestProbeHealsHalfOpenBreaker(t *testing.T) {
	prober, manager, registry, checker := testProber(t, 20*time.Millisecond)
	registerProbed(t, manager, "pricing", 0)

	checker.fail(errProbeDown)
	for i := 0; i < 3; i++ {
		prober.probe("pricing")
	}
	require.Equal(t, resilience.StateOpen, registry.Stats("pricing").State)

	checker.fail(nil)
	require.Eventually(t, func() bool {
		return registry.Stats("pricing").State == resilience.StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	prober.probe("pricing")

	assert.Equal(t, 4, checker.count())
	assert.Equal(t, resilience.StateClosed, registry.Stats("pricing").State)
	assert.Equal(t, types.HealthHealthy, manager.Health("pricing"))
}

func TestSweepHonorsPerDependencyInterval(t *testing.T) {
	prober, manager, _, checker := testProber(t, time.Minute)
	registerProbed(t, manager, "pricing", time.Hour)

	// No probe config at all means never probed.
	require.NoError(t, manager.Register(types.DependencyConfig{
		Name:     "analytics",
		Strategy: types.StrategyFailFast,
	}))

	nextDue := make(map[string]time.Time)
	prober.sweep(nextDue)
	prober.sweep(nextDue)

	assert.Equal(t, 1, checker.count())
}

func TestSweepPrunesTornDownDependencies(t *testing.T) {
	prober, manager, _, checker := testProber(t, time.Minute)
	registerProbed(t, manager, "pricing", 0)

	nextDue := make(map[string]time.Time)
	prober.sweep(nextDue)
	require.Equal(t, 1, checker.count())
	require.Contains(t, nextDue, "pricing")

	require.NoError(t, manager.Teardown("pricing"))

	prober.sweep(nextDue)
	assert.Equal(t, 1, checker.count())
	assert.Empty(t, nextDue)
}

func TestKickProbesImmediately(t *testing.T) {
	prober, manager, _, checker := testProber(t, time.Minute)
	registerProbed(t, manager, "pricing", 0)

	prober.Start()
	defer prober.Stop()

	// Startup sweep runs before the first tick.
	require.Eventually(t, func() bool {
		return checker.count() == 1
	}, time.Second, 5*time.Millisecond)

	prober.Kick("pricing")

	require.Eventually(t, func() bool {
		return checker.count() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestStopIsIdempotentAndClosesCheckers(t *testing.T) {
	prober, manager, _, checker := testProber(t, time.Minute)
	registerProbed(t, manager, "pricing", 0)

	prober.Start()
	prober.Stop()
	prober.Stop()

	checker.mu.Lock()
	closed := checker.closed
	checker.mu.Unlock()
	assert.Equal(t, 1, closed)
}

func TestProbeSkipsUnknownKind(t *testing.T) {
	prober, manager, _, checker := testProber(t, time.Minute)

	require.NoError(t, manager.Register(types.DependencyConfig{
		Name:     "pricing",
		Strategy: types.StrategyFailFast,
		Probe: &types.ProbeConfig{
			Kind:   types.ProbeKind("smoke-signal"),
			Target: "the-hills",
		},
	}))

	prober.probe("pricing")

	assert.Zero(t, checker.count())
	assert.Equal(t, types.HealthHealthy, manager.Health("pricing"))
}

func TestProbeIgnoresUnregisteredDependency(t *testing.T) {
	prober, _, _, checker := testProber(t, time.Minute)

	prober.probe("ghost")

	assert.Zero(t, checker.count())
}
