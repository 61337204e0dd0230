package cache

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/infrastructure/monitoring"
)

// Entry is a single cached value with its expiry bookkeeping
type Entry struct {
	Value     interface{}   `json:"value"`
	StoredAt  time.Time     `json:"stored_at"`
	TTL       time.Duration `json:"ttl"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// expired reports whether the entry is past its TTL at the given instant
func (e *Entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Store is a bounded TTL key/value store. Expired entries are purged
// lazily: on the read that discovers them and during writes at capacity.
// There is no background janitor.
//
// Values are stored by reference; callers must treat them as immutable.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*Entry // Protected by mu
	capacity   int               // <= 0 means unbounded
	defaultTTL time.Duration
	metrics    *monitoring.Metrics
}

// Stats contains store statistics
type Stats struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

// NewStore creates a cache store with the given capacity and default TTL
func NewStore(capacity int, defaultTTL time.Duration) *Store {
	return &Store{
		entries:    make(map[string]*Entry),
		capacity:   capacity,
		defaultTTL: defaultTTL,
	}
}

// WithMetrics adds metrics tracking to the store
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Get returns the value under key, or false on a miss. A read past the
// entry's expiry is a miss and removes the entry.
func (s *Store) Get(key string) (interface{}, bool) {
	now := time.Now()

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if ok && !entry.expired(now) {
		if s.metrics != nil {
			s.metrics.RecordCacheHit()
		}
		return entry.Value, true
	}

	if ok {
		// Lazy purge; re-check under the write lock in case of a
		// concurrent overwrite with a fresher entry.
		s.mu.Lock()
		if current, still := s.entries[key]; still && current.expired(now) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
	}

	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}
	return nil, false
}

// GetEntry returns the full entry under key for diagnostics, applying
// the same expiry rules as Get
func (s *Store) GetEntry(key string) (*Entry, bool) {
	if _, ok := s.Get(key); !ok {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// Set stores value under key. A non-positive ttl selects the store's
// default. At capacity, expired entries are purged first; if the store
// is still full the entry closest to expiry is evicted.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && s.capacity > 0 && len(s.entries) >= s.capacity {
		s.purgeExpiredLocked(now)
		if len(s.entries) >= s.capacity {
			s.evictSoonestLocked()
		}
	}

	s.entries[key] = &Entry{
		Value:     value,
		StoredAt:  now,
		TTL:       ttl,
		ExpiresAt: now.Add(ttl),
	}

	if s.metrics != nil {
		s.metrics.SetCacheSize(len(s.entries))
	}
}

// Delete removes the entry under key, reporting whether it existed
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)

	if s.metrics != nil {
		s.metrics.SetCacheSize(len(s.entries))
	}
	return true
}

// Flush removes every entry and returns how many were dropped
func (s *Store) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[string]*Entry)

	if s.metrics != nil {
		s.metrics.SetCacheSize(0)
	}
	return n
}

// Len returns the number of live entries, counting not-yet-purged
// expired ones
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns store statistics
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Size:     len(s.entries),
		Capacity: s.capacity,
	}
}

// purgeExpiredLocked drops every expired entry (must hold write lock)
func (s *Store) purgeExpiredLocked(now time.Time) {
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}
}

// evictSoonestLocked drops the entry closest to expiry (must hold write lock)
func (s *Store) evictSoonestLocked() {
	var victim string
	var soonest time.Time

	for key, entry := range s.entries {
		if victim == "" || entry.ExpiresAt.Before(soonest) {
			victim = key
			soonest = entry.ExpiresAt
		}
	}

	if victim != "" {
		delete(s.entries, victim)
	}
}
