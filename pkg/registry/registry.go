package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEntityNotFound is returned when an entity is not registered
	ErrEntityNotFound = errors.New("entity not found")
	// ErrEntityAlreadyRegistered is returned on duplicate registration
	ErrEntityAlreadyRegistered = errors.New("entity already registered")
)

// Registry is the process-wide catalogue of entity specifications. Entries
// are registered during startup and frozen afterwards; adding an entity
// never requires changes to other components.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*EntitySpec
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		specs: make(map[string]*EntitySpec),
	}
}

// Register validates the spec, applies defaults and adds it to the registry.
func (r *Registry) Register(spec *EntitySpec) error {
	spec.SetDefaults()

	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid entity spec: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrEntityAlreadyRegistered, spec.Name)
	}

	r.specs[spec.Name] = spec

	return nil
}

// Get returns the specification for the named entity.
func (r *Registry) Get(name string) (*EntitySpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}

	return spec, nil
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
