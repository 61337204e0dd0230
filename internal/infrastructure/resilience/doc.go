/*
Package resilience provides per-dependency circuit breakers and the
registry the degradation layer consults.

# Overview

This package implements the circuit breaker pattern to prevent cascading
failures when outbound dependencies become unavailable or slow. A Registry
owns one breaker per dependency name and exposes the minimal read contract
(state plus recent failure count) health decisions are derived from.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Configurable failure thresholds and timeouts
- Automatic state transitions
- Lazy per-dependency breaker creation
- State change callbacks for monitoring and event streams
- Thread-safe operations

# Usage

	// One registry per process, shared settings
	registry := resilience.NewRegistry(resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Printf("breaker %s: %s -> %s", name, from, to)
		},
	})

	// Execute a dependency call through its breaker
	breaker := registry.GetOrCreate("pricing")
	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Call()
	})

	// Read contract for health derivation
	stats := registry.Stats("pricing") // {State, FailureCount}

# States

- Closed: Normal operation, requests pass through
- Open: Dependency unavailable, requests fail immediately
- Half-Open: Testing if the dependency recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
