package resilience

import "sync"

// Registry owns one breaker per dependency name and is the read surface
// health decisions consult. Breakers are created lazily on first use so
// callers never need to pre-declare them.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker // Protected by mu
	settings Settings            // Template applied to new breakers
}

// NewRegistry creates a registry whose breakers share the given settings
func NewRegistry(settings Settings) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		settings: settings,
	}
}

// GetOrCreate returns the breaker for a dependency, creating it on
// first use
func (r *Registry) GetOrCreate(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check; another goroutine may have created it.
	if b, ok := r.breakers[name]; ok {
		return b
	}

	b = New(name, r.settings)
	r.breakers[name] = b
	return b
}

// Get returns the breaker for a dependency if one exists
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.breakers[name]
	return b, ok
}

// Stats returns the read contract for a dependency. A dependency with
// no breaker activity reads as closed with zero failures.
func (r *Registry) Stats(name string) Stats {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()

	if !ok {
		return Stats{State: StateClosed}
	}
	return b.Stats()
}

// All returns the stats of every known breaker keyed by dependency name
func (r *Registry) All() map[string]Stats {
	r.mu.RLock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	r.mu.RUnlock()

	// Stats acquires each breaker's own lock; do it outside ours.
	stats := make(map[string]Stats, len(names))
	for _, name := range names {
		stats[name] = r.Stats(name)
	}
	return stats
}

// Remove drops a dependency's breaker, reporting whether it existed.
// Used on dependency teardown.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.breakers[name]; !ok {
		return false
	}
	delete(r.breakers, name)
	return true
}

// Len returns the number of known breakers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.breakers)
}
