// Package probe actively health-checks registered dependencies.
//
// The prober runs a single background loop. On each sweep it probes
// every dependency whose probe interval has elapsed, using the checker
// matching the dependency's probe kind (HTTP GET or gRPC health
// protocol). Probes execute through the dependency's circuit breaker,
// so a run of failed probes trips the breaker exactly like failed
// caller traffic, and a successful probe against a half-open breaker
// closes it again. After every attempt the prober refreshes the
// dependency's observed health, which is what emits health transition
// events and triggers queue drains on recovery.
//
// # Cadence
//
// The prober ticks at its base interval. Dependencies may declare a
// longer interval of their own; shorter ones are effectively clamped
// to the base tick. Kick schedules an out-of-band probe, which the
// server uses when a breaker changes state.
//
// # Usage
//
//	prober := probe.New(manager, registry, 15*time.Second, 3*time.Second).
//		WithMetrics(metrics).
//		WithLogger(logger)
//	prober.Start()
//	defer prober.Stop()
package probe
