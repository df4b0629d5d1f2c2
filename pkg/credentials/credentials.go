package credentials

import (
	"context"
	"sort"
)

// Reserved property names with a fixed meaning across all providers and consumers.
const (
	UserKey     = "user"
	PasswordKey = "password"
)

// CredentialSet maps property names to values. Apart from the reserved keys,
// its contents are provider-specific.
type CredentialSet map[string]string

// User returns the reserved user property, or "" if absent.
func (c CredentialSet) User() string {
	return c[UserKey]
}

// Password returns the reserved password property, or "" if absent.
func (c CredentialSet) Password() string {
	return c[PasswordKey]
}

// Get returns the value for key and whether it was present.
func (c CredentialSet) Get(key string) (string, bool) {
	v, ok := c[key]
	return v, ok
}

// Extras returns every non-reserved property. The result is a new map.
func (c CredentialSet) Extras() map[string]string {
	extras := make(map[string]string)
	for k, v := range c {
		if IsReserved(k) {
			continue
		}
		extras[k] = v
	}
	return extras
}

// Keys returns the property names in lexical order.
func (c CredentialSet) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy that shares no storage with c. Cloning a nil set
// yields an empty, non-nil set.
func (c CredentialSet) Clone() CredentialSet {
	out := make(CredentialSet, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// IsReserved reports whether key is one of the reserved property names.
func IsReserved(key string) bool {
	return key == UserKey || key == PasswordKey
}

// Provider produces the current credentials for a logical name.
//
// Implementations must be safe for concurrent use and should honour ctx
// cancellation for any network I/O. The returned set may differ between
// calls for the same name; that is how rotation is expressed.
type Provider interface {
	Credentials(ctx context.Context, name string) (CredentialSet, error)
}

// ProviderFunc adapts an ordinary function to the Provider interface.
type ProviderFunc func(ctx context.Context, name string) (CredentialSet, error)

// Credentials calls f(ctx, name).
func (f ProviderFunc) Credentials(ctx context.Context, name string) (CredentialSet, error) {
	return f(ctx, name)
}

// Validator is implemented by providers that can check their configuration
// and connectivity without producing credentials.
type Validator interface {
	Validate(ctx context.Context) error
}
