/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the
resilience backend, tracking HTTP requests, request coalescing,
degradation strategies, dependency health, queues, caches, and probes.

# Features

- HTTP request metrics (latency, throughput, size)
- Coalescer metrics (deduplicated, rejected, cancelled, timed out)
- Fallback strategy outcomes per dependency
- Dependency health and queue depth gauges
- Health probe results and outbound call durations
- Cache hit/miss/size metrics
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.RecordFallback("pricing", "default-response", "served")
	metrics.SetDependencyHealth("pricing", 2)

	// Time outbound calls
	timer := monitoring.NewTimer(metrics, "pricing", "probe")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

The JSON snapshot (GetSnapshot) additionally serves rolling latency
percentiles computed over a bounded sample window.
*/
package monitoring
