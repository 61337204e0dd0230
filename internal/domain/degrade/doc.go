/*
Package degrade tracks per-dependency health and serves degraded
answers when a dependency cannot respond normally.

# Overview

The Manager owns dependency registrations (name, fallback strategy,
static default, queue depth), manual health overrides, and the request
queues. Breaker state is consulted, never owned: health is recomputed
on demand from the breaker registry's stats.

Health mapping:

	breaker open       -> unhealthy
	breaker half-open  -> degraded
	breaker closed     -> degraded while recent failures remain
	breaker closed     -> healthy at zero failures

# Fallback Strategies

	cached-response      serve the last written-through result if unexpired
	simplified-response  serve the caller-supplied reduced payload
	default-response     serve the registration's static default
	queue                defer the call until the dependency recovers
	fail-fast            reject immediately with service unavailable

A strategy with nothing to serve fails with a NoFallbackError whose
Reason separates "cache empty" from "no default configured". Faults
inside the fallback path downgrade to the same error instead of
crashing the call.

# Usage

	manager := degrade.NewManager(breakers).
		WithCache(store).
		WithCoalescer(coalescer).
		WithLogger(log)

	manager.Register(types.DependencyConfig{
		Name:          "pricing",
		Strategy:      types.StrategyDefaultResponse,
		StaticDefault: map[string]interface{}{"rate": 0},
	})

	result, err := manager.Do(ctx, "pricing", types.CallContext{
		Params:   map[string]interface{}{"plan": "annual"},
		CacheKey: "plan:annual",
		Primary:  fetchRate,
	})

Do coalesces the primary through the deduplication layer, runs it
inside the dependency's breaker, writes successes through to the
cache, and falls back on failure or non-healthy state.
*/
package degrade
