package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

// Registration bundles everything a transport package contributes: how to
// build the adapter, how to probe client availability, and what the
// transport can do.
type Registration struct {
	Builder      Builder
	Probe        Probe
	Capabilities Capabilities
}

// Registry maps transport names to their registrations. It is the
// capability registry the selector consults instead of any
// classpath-scanning mechanism.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// DefaultRegistry is the global adapter registry. Transport sub-packages
// register themselves into it from init.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds a transport registration under the given name. The name
// should match the Adapter config value (e.g. "kafka", "aws").
func (r *Registry) Register(name string, reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = reg
}

// Has reports whether a transport is registered under the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered transport names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// GetCapabilities returns the capabilities for a registered transport, or a
// zero Capabilities carrying the name when unknown.
func (r *Registry) GetCapabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if reg, ok := r.entries[name]; ok {
		return reg.Capabilities
	}
	return Capabilities{Name: name}
}

// Available reports whether the named transport is registered and its probe
// passes. A registration without a probe counts as always available.
func (r *Registry) Available(ctx context.Context, name string, cfg Config) bool {
	r.mu.RLock()
	reg, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	if reg.Probe == nil {
		return true
	}
	return reg.Probe(ctx, cfg)
}

// Build creates the named adapter using its registered builder.
func (r *Registry) Build(ctx context.Context, name string, cfg Config, logger watermill.LoggerAdapter) (Adapter, error) {
	if cfg == nil {
		return Adapter{}, fmt.Errorf("portabus: config is required")
	}

	r.mu.RLock()
	reg, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return Adapter{}, fmt.Errorf("portabus: unknown adapter: %q (registered: %v)", name, r.Names())
	}

	a, err := reg.Builder(ctx, cfg, logger)
	if err != nil {
		return Adapter{}, err
	}
	if a.Name == "" {
		a.Name = name
	}
	return a, nil
}

// Register adds a registration to the default registry.
func Register(name string, reg Registration) {
	DefaultRegistry.Register(name, reg)
}
