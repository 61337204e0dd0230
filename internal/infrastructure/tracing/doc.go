/*
Package tracing provides distributed tracing for debugging production issues.

# Overview

This package implements lightweight distributed tracing to track calls
through the resilience layer and out to probed dependencies. It follows
OpenTelemetry concepts but with a minimal implementation tailored to
the system's needs.

# Features

- Trace context propagation via HTTP headers and gRPC metadata
- Span creation and management with parent-child relationships
- Automatic trace ID generation
- HTTP middleware and gRPC client interceptor for automatic instrumentation
- Structured logging integration
- Low overhead with buffered span collection

# Usage

	// Create tracer
	tracer := tracing.New("backend", logger)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// gRPC probe client interceptor
	conn, err := grpc.NewClient(addr,
		grpc.WithUnaryInterceptor(tracing.GRPCClientInterceptor(tracer)),
	)

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	span.SetTag("key", "value")
	span.Log("message", map[string]interface{}{"detail": "info"})

	// Drain buffered spans on shutdown
	tracer.Stop()

# Trace Format

Traces use standard HTTP headers for propagation:
- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation

# Performance

The tracing system is designed for minimal overhead:
- Buffered span collection (1000 spans)
- Async span processing
- Structured logging integration
- No external dependencies
*/
package tracing
