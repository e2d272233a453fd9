package providers

import "fmt"

// Registry holds the configured providers. Registration order is the
// fixed fallback order used by the fixed_order strategy and as the tie
// break for cost ranking.
type Registry struct {
	byName  map[string]Provider
	ordered []Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Provider),
	}
}

// Register adds a provider. Names must be unique.
func (r *Registry) Register(p Provider) error {
	name := p.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.byName[name] = p
	r.ordered = append(r.ordered, p)
	return nil
}

// Get returns a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// List returns providers in registration order. The returned slice is a
// copy so callers can reorder it freely.
func (r *Registry) List() []Provider {
	out := make([]Provider, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered providers
func (r *Registry) Len() int {
	return len(r.ordered)
}
