package param

import (
	"sync"

	"github.com/perastrom/koto/pkg/rt"
)

// Registry manages one processor's parameters. Iteration order is
// registration order.
type Registry struct {
	mu     sync.RWMutex
	byID   map[rt.ObjectID]*Parameter
	byName map[string]*Parameter
	order  []rt.ObjectID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[rt.ObjectID]*Parameter),
		byName: make(map[string]*Parameter),
	}
}

// Add registers parameters, skipping duplicates by id.
func (r *Registry) Add(params ...*Parameter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range params {
		if _, exists := r.byID[p.ID()]; exists {
			continue
		}
		r.byID[p.ID()] = p
		r.byName[p.Name()] = p
		r.order = append(r.order, p.ID())
	}
}

// Get retrieves a parameter by id, or nil.
func (r *Registry) Get(id rt.ObjectID) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// GetByName retrieves a parameter by machine name, or nil.
func (r *Registry) GetByName(name string) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// Count returns the number of registered parameters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns the parameters in registration order.
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.byID[id]
	}
	return result
}
