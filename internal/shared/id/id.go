// Package id provides centralized ID generation for the backend.
//
// This package offers type-safe ULID generation with:
//   - Lexicographic sortability: Enables efficient time-based queries
//   - Prefixed types: Type-specific prefixes for debugging (req_*, qi_*, trc_*)
//   - Type safety: Separate types prevent ID misuse
//   - Performance: ~2μs per ULID under a single entropy lock
//
// Design Principles:
//   - ULIDs only: Single ID format across the entire system
//   - K-sortable: Timeline queries without timestamps
//   - Debuggable: Prefixes make logs readable
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// ExecutionID identifies a single coalesced execution
type ExecutionID string

// DependencyID identifies a dependency registration
type DependencyID string

// QueueItemID identifies a queued deferred call
type QueueItemID string

// TraceID identifies a trace through the resilience layer
type TraceID string

// SpanID identifies a span within a trace
type SpanID string

// ============================================================================
// ID Prefixes (for debugging and type identification)
// ============================================================================

const (
	ExecutionPrefix  = "req"
	DependencyPrefix = "dep"
	QueueItemPrefix  = "qi"
	TracePrefix      = "trc"
	SpanPrefix       = "span"
)

// ============================================================================
// ULID Generator (Primary)
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	// Default generator with cryptographically secure entropy
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewExecutionID generates a new execution ID
func NewExecutionID() ExecutionID {
	return ExecutionID(Default().GenerateWithPrefix(ExecutionPrefix))
}

// NewDependencyID generates a new dependency registration ID
func NewDependencyID() DependencyID {
	return DependencyID(Default().GenerateWithPrefix(DependencyPrefix))
}

// NewQueueItemID generates a new queue item ID
func NewQueueItemID() QueueItemID {
	return QueueItemID(Default().GenerateWithPrefix(QueueItemPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// ============================================================================
// Type Conversion and Validation
// ============================================================================

// String methods for ID types
func (id ExecutionID) String() string  { return string(id) }
func (id DependencyID) String() string { return string(id) }
func (id QueueItemID) String() string  { return string(id) }
func (id TraceID) String() string      { return string(id) }
func (id SpanID) String() string       { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string
func Parse(id string) (ulid.ULID, error) {
	return ulid.Parse(id)
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
