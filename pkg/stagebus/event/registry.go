package event

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry binds each routing tag to exactly one Go variant type.
// It guards the invariant that a tag is never reused by another variant.
type Registry struct {
	mu       sync.RWMutex
	variants map[Type]reflect.Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		variants: make(map[Type]reflect.Type),
	}
}

// Register records the variant of prototype under its tag.
// Registering the same variant twice is a no-op.
func (r *Registry) Register(prototype Event) error {
	tag := prototype.Type()
	if tag == "" {
		return fmt.Errorf("%w (variant %T)", ErrEmptyType, prototype)
	}
	goType := reflect.TypeOf(prototype)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.variants[tag]; ok {
		if existing != goType {
			return fmt.Errorf("%w: %s is %s, not %s", ErrTypeConflict, tag, existing, goType)
		}
		return nil
	}
	r.variants[tag] = goType
	return nil
}

// MustRegister registers each prototype, panicking on error.
func (r *Registry) MustRegister(prototypes ...Event) {
	for _, p := range prototypes {
		if err := r.Register(p); err != nil {
			panic(fmt.Sprintf("failed to register event variant: %v", err))
		}
	}
}

// Has returns true if the tag is registered.
func (r *Registry) Has(tag Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.variants[tag]
	return ok
}

// Types returns all registered tags in sorted order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.variants))
	for t := range r.variants {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
