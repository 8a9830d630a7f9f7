package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/railzwaylabs/shopfaq/internal/billing/domain"
)

type Registry struct {
	factories map[string]domain.ProviderFactory
}

func NewRegistry(factories ...domain.ProviderFactory) *Registry {
	r := &Registry{factories: make(map[string]domain.ProviderFactory, len(factories))}
	for _, f := range factories {
		if f == nil {
			continue
		}
		r.factories[strings.ToLower(f.Provider())] = f
	}
	return r
}

// NewAdapter builds the provider registered under name.
func (r *Registry) NewAdapter(name string, cfg domain.ProviderConfig) (domain.Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrProviderNotConfigured, name)
	}
	cfg.Provider = name
	return f.NewProvider(cfg)
}

// Providers lists registered provider names in sorted order.
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
