package ai

// Registry holds the known providers in a fixed canonical order. The order
// is the fan-out order used when a session targets all providers.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry creates a registry; canonical order is registration order
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		if _, exists := r.providers[p.ID()]; exists {
			continue
		}
		r.order = append(r.order, p.ID())
		r.providers[p.ID()] = p
	}
	return r
}

// Get returns the provider for an identifier
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Has reports whether the identifier names a known provider
func (r *Registry) Has(id string) bool {
	_, ok := r.providers[id]
	return ok
}

// IDs returns all provider identifiers in canonical order
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
