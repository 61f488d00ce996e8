package codeaction

import (
	"context"
	"fmt"
	"sync"
)

// Provider is an independent source of candidate code actions.
type Provider interface {
	// ID returns a stable, unique identifier for the provider.
	ID() string

	// ProvideCodeActions returns the provider's actions for the request,
	// in the order the provider wants them shown.
	ProvideCodeActions(ctx context.Context, req Request) ([]Action, error)
}

// KindProvider is implemented by providers that advertise which kinds
// they can produce. The collector skips providers that cannot produce
// anything the filter keeps.
type KindProvider interface {
	ProvidedKinds() []Kind
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	Name  string
	Kinds []Kind
	Fn    func(ctx context.Context, req Request) ([]Action, error)
}

// ID implements Provider.
func (p ProviderFunc) ID() string { return p.Name }

// ProvidedKinds implements KindProvider.
func (p ProviderFunc) ProvidedKinds() []Kind { return p.Kinds }

// ProvideCodeActions implements Provider.
func (p ProviderFunc) ProvideCodeActions(ctx context.Context, req Request) ([]Action, error) {
	if p.Fn == nil {
		return nil, nil
	}
	return p.Fn(ctx, req)
}

// StaticProvider returns the same actions for every request.
type StaticProvider struct {
	Name    string
	Kinds   []Kind
	Actions []Action
}

// ID implements Provider.
func (p *StaticProvider) ID() string { return p.Name }

// ProvidedKinds implements KindProvider.
func (p *StaticProvider) ProvidedKinds() []Kind { return p.Kinds }

// ProvideCodeActions implements Provider.
func (p *StaticProvider) ProvideCodeActions(_ context.Context, _ Request) ([]Action, error) {
	out := make([]Action, len(p.Actions))
	copy(out, p.Actions)
	return out, nil
}

// providedKinds returns the kinds a provider advertises, if any.
func providedKinds(p Provider) []Kind {
	if kp, ok := p.(KindProvider); ok {
		return kp.ProvidedKinds()
	}
	return nil
}

// Registry holds providers in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	index     map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Register appends a provider. Registration order is the order in which
// provider results are concatenated.
func (r *Registry) Register(p Provider) error {
	if p == nil || p.ID() == "" {
		return ErrInvalidProvider
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[p.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.ID())
	}

	r.index[p.ID()] = len(r.providers)
	r.providers = append(r.providers, p)
	return nil
}

// Unregister removes the provider with the given ID, keeping the
// relative order of the rest.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}

	r.providers = append(r.providers[:i], r.providers[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.providers); j++ {
		r.index[r.providers[j].ID()] = j
	}
	return nil
}

// Get returns the provider with the given ID.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.providers[i], true
}

// Providers returns a snapshot of all providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// ProvidersFor returns the providers that may produce actions the
// filter keeps, in registration order.
func (r *Registry) ProvidersFor(f Filter) []Provider {
	all := r.Providers()
	out := all[:0]
	for _, p := range all {
		if f.WantsProvider(providedKinds(p)) {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
