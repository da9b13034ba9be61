package circuit

import "sync"

// Registry tracks named circuit breakers sharing one default configuration.
// It is typically keyed by backend name or URL so each protected resource
// gets its own breaker.
type Registry struct {
	mu       sync.RWMutex
	defaults Config
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry whose breakers are built from defaults,
// with Name overridden per entry.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		defaults: defaults,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate returns the breaker for name, creating it on first use.
func (r *Registry) GetOrCreate(name string) (*CircuitBreaker, error) {
	r.mu.RLock()
	cb, exists := r.breakers[name]
	r.mu.RUnlock()
	if exists {
		return cb, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have created it.
	if cb, exists = r.breakers[name]; exists {
		return cb, nil
	}

	cfg := r.defaults
	cfg.Name = name
	cb, err := New(cfg)
	if err != nil {
		return nil, err
	}
	r.breakers[name] = cb
	return cb, nil
}

// Get returns the breaker for name if it exists.
func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// Remove drops the breaker for name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, name)
}

// States returns the current state of every registered breaker.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		states[name] = cb.State()
	}
	return states
}
