package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/docworld/internal/core/schema"
)

var (
	ErrUnknownType       = errors.New("registry: unknown component type")
	ErrAlreadyRegistered = errors.New("registry: component type already registered")
	ErrInvalidType       = errors.New("registry: invalid component type")
)

// TypeName names a component type. It is the key of a component inside an
// entity in both the world and the document.
type TypeName string

// ComponentType binds a name to the descriptor of its state.
type ComponentType struct {
	Name   TypeName
	Schema schema.Descriptor
}

// Define builds a ComponentType.
func Define(name TypeName, d schema.Descriptor) ComponentType {
	return ComponentType{Name: name, Schema: d}
}

func (t ComponentType) String() string {
	return string(t.Name)
}

// Decode decodes the untyped document form of this type.
func (t ComponentType) Decode(raw any) (any, error) {
	v, err := schema.Decode(t.Schema, raw)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", t.Name, err)
	}
	return v, nil
}

// Encode encodes a typed value of this type.
func (t ComponentType) Encode(v any) (any, error) {
	raw, err := schema.Encode(t.Schema, v)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", t.Name, err)
	}
	return raw, nil
}

// SchemaRegistry resolves component type names to their descriptors.
type SchemaRegistry interface {
	RegisterType(t ComponentType) error
	UnregisterType(name TypeName) error
	GetType(name TypeName) (ComponentType, error)
	ListTypes() []TypeName
}

// Registry is a goroutine safe SchemaRegistry.
type Registry struct {
	mu    sync.RWMutex
	types map[TypeName]ComponentType
}

var _ SchemaRegistry = (*Registry)(nil)

// New builds a registry holding types.
func New(types ...ComponentType) (*Registry, error) {
	r := &Registry{types: make(map[TypeName]ComponentType, len(types))}
	for _, t := range types {
		if err := r.RegisterType(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNew is New that panics on error.
func MustNew(types ...ComponentType) *Registry {
	r, err := New(types...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) RegisterType(t ComponentType) error {
	if t.Name == "" || t.Schema == nil {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Name)
	}
	if !schema.IsContainer(t.Schema) {
		return fmt.Errorf("%w: %q must be an object or array, got %s", ErrInvalidType, t.Name, t.Schema)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, t.Name)
	}
	r.types[t.Name] = t
	return nil
}

func (r *Registry) UnregisterType(name TypeName) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; !exists {
		return fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	delete(r.types, name)
	return nil
}

func (r *Registry) GetType(name TypeName) (ComponentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.types[name]
	if !exists {
		return ComponentType{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Lookup is GetType without the error.
func (r *Registry) Lookup(name TypeName) (ComponentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.types[name]
	return t, exists
}

// ListTypes returns registered names in sorted order.
func (r *Registry) ListTypes() []TypeName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]TypeName, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
