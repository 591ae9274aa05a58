package source

import (
	"fmt"

	"news_ingest/internal/domain"
)

// Registry selects an adapter by provider name.
type Registry struct {
	providers map[domain.Provider]Provider
	order     []domain.Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.Provider]Provider, len(providers))}
	for _, p := range providers {
		name := p.ProviderName()
		if _, ok := r.providers[name]; !ok {
			r.order = append(r.order, name)
		}
		r.providers[name] = p
	}
	return r
}

func (r *Registry) Get(name domain.Provider) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// Names lists the registered providers in registration order.
func (r *Registry) Names() []domain.Provider {
	return append([]domain.Provider(nil), r.order...)
}
