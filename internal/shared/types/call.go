package types

import (
	"context"
	"time"
)

// Operation is an opaque unit of work producing a result or an error.
// The coalescer guarantees it is invoked at most once per pending key;
// the context it receives belongs to the execution, not to any single
// waiter.
type Operation func(ctx context.Context) (interface{}, error)

// CallContext carries everything the resilience layer needs to run,
// deduplicate, cache, and (if necessary) degrade a single call.
type CallContext struct {
	// Params are the logical call parameters; when Key is empty the
	// deduplication key is derived from their canonical form.
	Params map[string]interface{} `json:"params,omitempty"`

	// Key overrides derived key computation when set.
	Key string `json:"key,omitempty"`

	// CacheKey enables result write-through and cached-response
	// fallback under this key. Empty disables both.
	CacheKey string `json:"cache_key,omitempty"`

	// Timeout bounds the coalesced execution; zero falls back to the
	// coalescer default.
	Timeout time.Duration `json:"-"`

	// FallbackData is served verbatim by the simplified-response
	// strategy.
	FallbackData interface{} `json:"fallback_data,omitempty"`

	// Primary is the operation to run (and to defer under the queue
	// strategy). Never serialized.
	Primary Operation `json:"-"`

	// Trigger is the primary failure that initiated a reactive
	// fallback, nil on proactive degradation.
	Trigger error `json:"-"`
}

// WSMessage represents an inbound WebSocket control message on the
// health stream
type WSMessage struct {
	Type         string   `json:"type"`
	Dependencies []string `json:"dependencies,omitempty"`
}
