package credentials

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Registry maps provider names to the Provider registered under each.
//
// Providers are registered during start-up and held for the life of the
// process. The registry does not own them: it never closes or reconfigures
// a provider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register associates name with p. Registering a name twice fails with a
// *DuplicateNameError and leaves the first registration in place.
func (r *Registry) Register(name string, p Provider) error {
	if name == "" {
		return errors.New("credentials provider name must not be empty")
	}
	if p == nil {
		return errors.New("credentials provider " + name + " is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	r.providers[name] = p
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, p Provider) {
	if err := r.Register(name, p); err != nil {
		panic(err)
	}
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, bool) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	return p, ok
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Resolve returns the current credentials produced by the provider
// registered under name. The provider is asked for name itself.
func (r *Registry) Resolve(ctx context.Context, name string) (CredentialSet, error) {
	return r.ResolveAs(ctx, name, name)
}

// ResolveAs asks the provider registered under name for the credentials of
// identity. It serves providers that hold several logical identities. An
// empty identity means name.
//
// The returned set is a copy private to the caller. Provider errors are
// returned as *ProviderLookupError with the cause intact.
func (r *Registry) ResolveAs(ctx context.Context, name, identity string) (CredentialSet, error) {
	p, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownProviderError{Name: name}
	}

	identity = identityOrName(name, identity)
	creds, err := p.Credentials(ctx, identity)
	if err != nil {
		return nil, &ProviderLookupError{Name: name, Identity: identity, Err: err}
	}
	return creds.Clone(), nil
}

func identityOrName(name, identity string) string {
	if identity == "" {
		return name
	}
	return identity
}
