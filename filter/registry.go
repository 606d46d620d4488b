package filter

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/nxgraph/result"
)

// ErrDuplicateFilter is returned when a name or UUID is registered twice.
var ErrDuplicateFilter = result.Sentinel(result.KindValidation, "filter: duplicate registration")

// Registry indexes filters by UUID and name. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]Filter
	byName map[string]Filter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uuid.UUID]Filter), byName: make(map[string]Filter)}
}

// Register adds filters. Nothing is added when any of them collides.
func (r *Registry) Register(filters ...Filter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(filters))
	for _, f := range filters {
		if _, ok := r.byID[f.UUID()]; ok || seen[f.UUID().String()] {
			return fmt.Errorf("%w: uuid %s (%s)", ErrDuplicateFilter, f.UUID(), f.Name())
		}
		if _, ok := r.byName[f.Name()]; ok || seen[f.Name()] {
			return fmt.Errorf("%w: name %s", ErrDuplicateFilter, f.Name())
		}
		seen[f.UUID().String()] = true
		seen[f.Name()] = true
	}
	for _, f := range filters {
		r.byID[f.UUID()] = f
		r.byName[f.Name()] = f
	}
	return nil
}

// Lookup returns the filter registered under id.
func (r *Registry) Lookup(id uuid.UUID) (Filter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byID[id]
	return f, ok
}

// LookupByName returns the filter registered under name.
func (r *Registry) LookupByName(name string) (Filter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byName[name]
	return f, ok
}

// List returns all filters sorted by name.
func (r *Registry) List() []Filter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Filter, 0, len(r.byName))
	for _, f := range r.byName {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Filter) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// Len returns the number of registered filters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
