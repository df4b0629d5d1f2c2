package credentials_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/dscreds/pkg/credentials"
)

func TestCredentialSetAccessors(t *testing.T) {
	t.Parallel()

	set := credentials.CredentialSet{
		credentials.UserKey:     "svc-orders",
		credentials.PasswordKey: "hunter2",
		"lease_id":              "database/creds/orders/abc",
		"sslmode":               "verify-full",
	}

	assert.Equal(t, "svc-orders", set.User())
	assert.Equal(t, "hunter2", set.Password())
	assert.Equal(t, []string{"lease_id", "password", "sslmode", "user"}, set.Keys())
	assert.Equal(t, map[string]string{
		"lease_id": "database/creds/orders/abc",
		"sslmode":  "verify-full",
	}, set.Extras())

	v, ok := set.Get("sslmode")
	assert.True(t, ok)
	assert.Equal(t, "verify-full", v)

	_, ok = set.Get("missing")
	assert.False(t, ok)
}

func TestCredentialSetMissingReservedKeys(t *testing.T) {
	t.Parallel()

	set := credentials.CredentialSet{"token": "abc"}
	assert.Empty(t, set.User())
	assert.Empty(t, set.Password())
	assert.Equal(t, map[string]string{"token": "abc"}, set.Extras())
}

func TestCredentialSetClone(t *testing.T) {
	t.Parallel()

	var nilSet credentials.CredentialSet
	cloned := nilSet.Clone()
	assert.NotNil(t, cloned)
	assert.Empty(t, cloned)

	orig := credentials.CredentialSet{credentials.UserKey: "a"}
	cp := orig.Clone()
	cp[credentials.UserKey] = "b"
	assert.Equal(t, "a", orig.User())
}

func TestIsReserved(t *testing.T) {
	t.Parallel()

	assert.True(t, credentials.IsReserved("user"))
	assert.True(t, credentials.IsReserved("password"))
	assert.False(t, credentials.IsReserved("username"))
	assert.False(t, credentials.IsReserved("User"))
}

func TestProviderFuncContract(t *testing.T) {
	store := map[string]credentials.CredentialSet{
		"orders": {credentials.UserKey: "orders", credentials.PasswordKey: "p"},
	}

	credentials.RunContractTests(t, credentials.ContractTest{
		CreateProvider: func(t *testing.T) credentials.Provider {
			return credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
				set, ok := store[name]
				if !ok {
					return nil, &credentials.NotFoundError{Provider: "func", Key: name}
				}
				return set.Clone(), nil
			})
		},
		KnownIdentity: "orders",
	})
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "duplicate",
			err:  &credentials.DuplicateNameError{Name: "db"},
			want: `credentials provider "db" is already registered`,
		},
		{
			name: "unknown",
			err:  &credentials.UnknownProviderError{Name: "db"},
			want: `no credentials provider registered as "db"`,
		},
		{
			name: "not found",
			err:  &credentials.NotFoundError{Provider: "vault", Key: "secret/db"},
			want: "credentials not found: secret/db in vault",
		},
		{
			name: "auth",
			err:  &credentials.AuthError{Provider: "vault", Message: "token expired"},
			want: "authentication failed for vault: token expired",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
