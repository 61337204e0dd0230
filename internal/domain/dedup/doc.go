/*
Package dedup coalesces concurrent identical outbound calls into a
single in-flight execution.

# Overview

The Coalescer owns a table of pending entries keyed by a deduplication
key. The first caller under a key starts the operation; every
concurrent caller with the same key subscribes to that execution and
observes the identical result or error. Settled entries are retained
for a short grace window so late-arriving identical calls still join
the finished execution instead of re-running it.

# Features

- Exactly-once execution per in-flight key
- Broadcast settlement: all waiters see the same outcome
- Per-entry cancellable timeout timers; a fired timeout always wins
- Per-key and whole-table cancellation for shutdown
- Bounded pending table with capacity rejection for new keys
- Best-effort result write-through to the cache store
- Canonical key derivation from call parameters (sorted-key JSON, SHA-256)

# Usage

	coalescer := dedup.New(dedup.Config{
		MaxPending:     1000,
		DefaultTimeout: 30 * time.Second,
		GraceWindow:    5 * time.Second,
	}).WithCache(store).WithMetrics(metrics)

	result, err := coalescer.Execute(ctx, key, func(ctx context.Context) (interface{}, error) {
		return client.FetchRecommendations(ctx, userID)
	}, dedup.Options{Timeout: 10 * time.Second, CacheKey: cacheKey})

	// Decorator form: identical signature, deduplication applied
	fetch := dedup.Wrap(coalescer, "recommendations", dedup.Options{}, rawFetch)
	result, err = fetch(ctx, map[string]interface{}{"userId": 42, "type": "full_body"})

# Concurrency

One coalescer instance per process, injected into consumers. Waiters
suspend independently: a caller abandoning its wait (context
cancellation) never affects the execution or other waiters. Distinct
keys never wait on each other.
*/
package dedup
