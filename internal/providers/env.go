package providers

import (
	"context"
	"os"
	"strings"

	"github.com/systmms/dscreds/pkg/credentials"
)

// DefaultEnvPrefix is used when an env provider sets no prefix.
const DefaultEnvPrefix = "DSCREDS"

// EnvProvider reads credentials from the process environment. For prefix
// DSCREDS and identity "orders-db" it reads:
//
//	DSCREDS_ORDERS_DB_USER
//	DSCREDS_ORDERS_DB_PASSWORD
//	DSCREDS_ORDERS_DB_PROP_<NAME>   -> extra key <name> (lower-cased)
//
// The environment is read on every call, so a changed variable is
// picked up without re-registration.
type EnvProvider struct {
	name    string
	prefix  string
	environ func() []string
}

// NewEnvProvider creates an env provider. An empty prefix means DefaultEnvPrefix.
func NewEnvProvider(name, prefix string) *EnvProvider {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvProvider{
		name:    name,
		prefix:  strings.TrimSuffix(prefix, "_"),
		environ: os.Environ,
	}
}

// Credentials collects the variables belonging to name.
func (e *EnvProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	base := e.VariablePrefix(name)
	propPrefix := base + "PROP_"
	set := credentials.CredentialSet{}

	for _, kv := range e.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, base) {
			continue
		}
		switch {
		case key == base+"USER":
			set[credentials.UserKey] = value
		case key == base+"PASSWORD":
			set[credentials.PasswordKey] = value
		case strings.HasPrefix(key, propPrefix) && len(key) > len(propPrefix):
			set[strings.ToLower(key[len(propPrefix):])] = value
		}
	}

	if _, hasUser := set[credentials.UserKey]; !hasUser {
		if _, hasPassword := set[credentials.PasswordKey]; !hasPassword {
			return nil, &credentials.NotFoundError{Provider: e.name, Key: base + "USER"}
		}
	}
	return set, nil
}

// VariablePrefix returns the environment variable prefix used for identity,
// including the trailing underscore.
func (e *EnvProvider) VariablePrefix(identity string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(identity) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return e.prefix + "_" + b.String() + "_"
}
