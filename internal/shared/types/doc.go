// Package types provides shared data structures for the resilience service.
//
// This package defines core types used across all backend components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - DependencyConfig: Declared outbound dependency and fallback policy
//   - CallContext: Per-call parameters, caching, and fallback inputs
//   - Operation: Unit of work executed under deduplication
//
// Health Model:
//   - Health: Dependency health enum (healthy, degraded, unhealthy)
//   - HealthEvent: Single health transition with reason and timestamp
//   - Strategy: Fallback strategy enum (cached, simplified, default,
//     queue, fail-fast)
//   - ProbeConfig: Active health-check target (HTTP or gRPC)
//
// Example Usage:
//
//	cfg := types.DependencyConfig{
//	    Name:          "pricing",
//	    Strategy:      types.StrategyDefaultResponse,
//	    StaticDefault: map[string]interface{}{"rate": 0},
//	}
package types
