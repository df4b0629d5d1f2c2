package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/dscreds/internal/secure"
	"github.com/systmms/dscreds/pkg/credentials"
)

// StaticProvider serves credentials declared in configuration. Each set is
// kept sealed in a memguard enclave and decrypted per call.
//
// Configuration:
//
//	type: static
//	user: app               # set returned for the provider's own name
//	password: secret
//	properties: {role: ro}
//	credentials:            # additional identities
//	  orders: {user: orders, password: secret, sslmode: require}
type StaticProvider struct {
	name string

	mu   sync.RWMutex
	sets map[string]*secure.SealedSet
}

// NewStaticProvider creates a static provider holding sets keyed by identity.
func NewStaticProvider(name string, sets map[string]credentials.CredentialSet) (*StaticProvider, error) {
	p := &StaticProvider{
		name: name,
		sets: make(map[string]*secure.SealedSet, len(sets)),
	}
	for identity, set := range sets {
		if err := p.SetCredentials(identity, set); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

// NewStaticProviderFromConfig builds a StaticProvider from its config block.
func NewStaticProviderFromConfig(name string, config map[string]interface{}) (*StaticProvider, error) {
	sets := make(map[string]credentials.CredentialSet)

	if own := staticSet(config); len(own) > 0 {
		sets[name] = own
	}

	if identities, ok := config["credentials"].(map[string]interface{}); ok {
		for identity, raw := range identities {
			block, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("static provider %s: credentials.%s must be a mapping", name, identity)
			}
			set, err := fromDocument(block)
			if err != nil {
				return nil, fmt.Errorf("static provider %s: credentials.%s: %w", name, identity, err)
			}
			sets[identity] = set
		}
	}

	return NewStaticProvider(name, sets)
}

func staticSet(config map[string]interface{}) credentials.CredentialSet {
	set := credentials.CredentialSet{}
	for k, v := range getStringMap(config, "properties") {
		set[k] = v
	}
	if user := getString(config, "user"); user != "" {
		set[credentials.UserKey] = user
	}
	if password := getString(config, "password"); password != "" {
		set[credentials.PasswordKey] = password
	}
	return set
}

// Credentials returns the set configured for name.
func (s *StaticProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sealed, ok := s.sets[name]
	if !ok {
		return nil, &credentials.NotFoundError{Provider: s.name, Key: name}
	}
	return sealed.Open()
}

// SetCredentials replaces the set for identity. The next Credentials call
// returns the new values.
func (s *StaticProvider) SetCredentials(identity string, set credentials.CredentialSet) error {
	sealed, err := secure.Seal(set)
	if err != nil {
		return fmt.Errorf("static provider %s: failed to seal %s: %w", s.name, identity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.sets[identity]; ok {
		old.Destroy()
	}
	s.sets[identity] = sealed
	return nil
}

// Validate always succeeds; there is no backend to reach.
func (s *StaticProvider) Validate(ctx context.Context) error {
	return nil
}

// Close destroys every sealed set.
func (s *StaticProvider) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for identity, sealed := range s.sets {
		sealed.Destroy()
		delete(s.sets, identity)
	}
	return nil
}
