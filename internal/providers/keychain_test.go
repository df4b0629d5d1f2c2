package providers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/dscreds/internal/providers"
	"github.com/systmms/dscreds/pkg/credentials"
	"github.com/systmms/dscreds/tests/fakes"
)

// TestKeychainProviderCredentials tests credential resolution
func TestKeychainProviderCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		config    map[string]interface{}
		setupFake func(*fakes.FakeKeychainClient)
		identity  string
		want      credentials.CredentialSet
		wantErr   bool
		errMsg    string
	}{
		{
			name: "json_document",
			setupFake: func(f *fakes.FakeKeychainClient) {
				f.SetSecret("dscreds", "orders", []byte(`{"user":"orders","password":"pw","sslmode":"disable"}`))
			},
			identity: "orders",
			want:     credentials.CredentialSet{"user": "orders", "password": "pw", "sslmode": "disable"},
		},
		{
			name:   "bare_password_with_provider_user",
			config: map[string]interface{}{"service": "com.example.db", "user": "admin"},
			setupFake: func(f *fakes.FakeKeychainClient) {
				f.SetSecret("com.example.db", "orders", []byte("hunter2"))
			},
			identity: "orders",
			want:     credentials.CredentialSet{"user": "admin", "password": "hunter2"},
		},
		{
			name: "per_identity_user_and_account",
			config: map[string]interface{}{
				"user":     "admin",
				"users":    map[string]interface{}{"billing": "billing_rw"},
				"accounts": map[string]interface{}{"billing": "billing-prod"},
			},
			setupFake: func(f *fakes.FakeKeychainClient) {
				f.SetSecret("dscreds", "billing-prod", []byte("s3cr3t"))
			},
			identity: "billing",
			want:     credentials.CredentialSet{"user": "billing_rw", "password": "s3cr3t"},
		},
		{
			name:   "document_user_wins",
			config: map[string]interface{}{"user": "admin"},
			setupFake: func(f *fakes.FakeKeychainClient) {
				f.SetSecret("dscreds", "orders", []byte(`{"username":"orders","password":"pw"}`))
			},
			identity: "orders",
			want:     credentials.CredentialSet{"user": "orders", "password": "pw"},
		},
		{
			name:     "not_found",
			identity: "missing",
			wantErr:  true,
			errMsg:   "not found",
		},
		{
			name: "access_denied",
			setupFake: func(f *fakes.FakeKeychainClient) {
				f.QueryErr = providers.ErrKeychainAccessDenied
			},
			identity: "orders",
			wantErr:  true,
			errMsg:   "access denied",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fakeClient := fakes.NewFakeKeychainClient()
			if tt.setupFake != nil {
				tt.setupFake(fakeClient)
			}
			p := providers.NewKeychainProviderWithClient("keychain", tt.config, fakeClient)

			got, err := p.Credentials(context.Background(), tt.identity)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeychainProviderErrorTypes(t *testing.T) {
	t.Parallel()

	fakeClient := fakes.NewFakeKeychainClient()
	p := providers.NewKeychainProviderWithClient("keychain", nil, fakeClient)

	_, err := p.Credentials(context.Background(), "missing")
	var notFound *credentials.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "dscreds/missing", notFound.Key)

	fakeClient.QueryErr = errors.New("dbus: connection refused")
	_, err = p.Credentials(context.Background(), "orders")
	var kcErr *providers.KeychainError
	require.ErrorAs(t, err, &kcErr)
	assert.Equal(t, "query", kcErr.Op)
	assert.Equal(t, "orders", kcErr.Account)
}

func TestKeychainProviderContract(t *testing.T) {
	t.Parallel()

	credentials.RunContractTests(t, credentials.ContractTest{
		CreateProvider: func(t *testing.T) credentials.Provider {
			fakeClient := fakes.NewFakeKeychainClient()
			fakeClient.SetSecret("dscreds", "orders", []byte(`{"user":"orders","password":"pw"}`))
			return providers.NewKeychainProviderWithClient("keychain", nil, fakeClient)
		},
		KnownIdentity: "orders",
	})
}

// go-keyring's mock backend is process-global, so this test is not parallel.
func TestKeychainProviderWithKeyringBackend(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, keyring.Set("dscreds-test", "orders", `{"user":"orders","password":"from-keyring"}`))

	p := providers.NewKeychainProvider("keychain", map[string]interface{}{"service": "dscreds-test"})

	set, err := p.Credentials(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", set.User())
	assert.Equal(t, "from-keyring", set.Password())

	require.NoError(t, keyring.Set("dscreds-test", "orders", `{"user":"orders","password":"rotated"}`))
	set, err = p.Credentials(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "rotated", set.Password())

	_, err = p.Credentials(context.Background(), "missing")
	var notFound *credentials.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
