// Package main is the entry point for the FitOS resilience service.
//
// The service sits between FitOS product backends and their downstream
// dependencies (pricing, recommendations, search, reporting), giving
// every caller request coalescing, circuit breaking, and graceful
// degradation without each team wiring its own.
//
// The server provides:
//   - REST API for dependency registration and health management
//   - WebSocket streaming of health transitions
//   - Background probing that trips and heals circuit breakers
//   - Prometheus metrics, a JSON snapshot, and an HTML dashboard
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8090 -deps deps.yaml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
