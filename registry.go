package ledger

import (
	"sort"
	"sync"

	"github.com/Station-Manager/errors"
)

// Registry maps category names to independent configurations so subsystems
// can log at their own verbosity and to their own sinks. Stored
// configurations are immutable snapshots; replacing one never affects an
// emit that already resolved the previous snapshot.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]*Config)}
}

// SetConfig validates cfg and registers a copy of it under category.
func (r *Registry) SetConfig(category string, cfg Config) error {
	const op errors.Op = "ledger.Registry.SetConfig"
	if err := cfg.validate(op); err != nil {
		return err
	}
	snapshot := cfg.clone()

	r.mu.Lock()
	r.configs[category] = &snapshot
	r.mu.Unlock()
	return nil
}

// HasConfig reports whether category has a registered configuration.
func (r *Registry) HasConfig(category string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[category]
	return ok
}

// Config returns a copy of the configuration registered under category.
func (r *Registry) Config(category string) (Config, bool) {
	cfg := r.lookup(category)
	if cfg == nil {
		return Config{}, false
	}
	return cfg.clone(), true
}

// Remove unregisters category. Its sinks are left open.
func (r *Registry) Remove(category string) {
	r.mu.Lock()
	delete(r.configs, category)
	r.mu.Unlock()
}

// Names returns the registered categories in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(category string) *Config {
	if category == emptyString {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configs[category]
}

// sinks returns every sink referenced by a registered configuration.
func (r *Registry) sinks() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Sink
	for _, cfg := range r.configs {
		out = append(out, cfg.Sinks...)
	}
	return out
}
