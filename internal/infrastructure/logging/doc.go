// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Log Levels:
//   - Debug: Verbose debugging information
//   - Info: General informational messages
//   - Warn: Warning messages
//   - Error: Error messages
//   - Fatal: Fatal errors (exits process)
//
// Features:
//   - Zero-allocation logging in production
//   - Structured fields for context
//   - Component children sharing one runtime-adjustable level
//   - Configurable output paths
//
// The level is backed by a zap.AtomicLevel, so SetLevel retunes a
// running process (exposed over the management API) without touching
// any component's logger reference.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	logger.Info("Server starting", zap.String("port", "8090"))
//	probeLog := logger.Component("probe")
//	probeLog.Error("Probe failed", zap.Error(err))
package logging
