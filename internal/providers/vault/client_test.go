package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/dscreds/pkg/credentials"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPVaultClient_TokenAuthAndRead(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))
		assert.Equal(t, "team-a", r.Header.Get("X-Vault-Namespace"))

		switch r.URL.Path {
		case "/v1/secret/data/orders":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"data": map[string]interface{}{"username": "orders", "password": "pw"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client, err := NewHTTPVaultClient(Config{
		Address:    server.URL,
		AuthMethod: "token",
		Token:      "root-token",
		Namespace:  "team-a",
	})
	require.NoError(t, err)
	p := NewVaultProviderWithClient("vault", Config{}, client)

	set, err := p.Credentials(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, credentials.CredentialSet{"user": "orders", "password": "pw"}, set)

	_, err = p.Credentials(context.Background(), "missing")
	var nf *credentials.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestHTTPVaultClient_DynamicCredentialsAreLive(t *testing.T) {
	t.Parallel()

	var issued atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/database/creds/orders", r.URL.Path)
		n := issued.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"lease_id":       "database/creds/orders/lease",
			"lease_duration": 60,
			"renewable":      true,
			"data": map[string]interface{}{
				"username": "v-orders",
				"password": "generated-" + string(rune('0'+n)),
			},
		})
	})

	client, err := NewHTTPVaultClient(Config{Address: server.URL, AuthMethod: "token", Token: "t"})
	require.NoError(t, err)
	p := NewVaultProviderWithClient("vault", Config{Mode: ModeDynamic}, client)

	first, err := p.Credentials(context.Background(), "orders")
	require.NoError(t, err)
	second, err := p.Credentials(context.Background(), "orders")
	require.NoError(t, err)

	assert.Equal(t, "generated-1", first.Password())
	assert.Equal(t, "generated-2", second.Password())
	assert.Equal(t, "60", second["lease_duration"])
}

func TestHTTPVaultClient_UserpassLoginOnce(t *testing.T) {
	t.Parallel()

	var logins atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/userpass/login/svc":
			logins.Add(1)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hunter2", body["password"])
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"auth": map[string]interface{}{"client_token": "issued-token"},
			})
		case "/v1/secret/data/app":
			assert.Equal(t, "issued-token", r.Header.Get("X-Vault-Token"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"data": map[string]interface{}{"user": "app", "password": "pw"}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client, err := NewHTTPVaultClient(Config{
		Address:          server.URL,
		AuthMethod:       "userpass",
		UserpassUsername: "svc",
		UserpassPassword: "hunter2",
	})
	require.NoError(t, err)
	p := NewVaultProviderWithClient("vault", Config{}, client)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, err := p.Credentials(context.Background(), "app")
			assert.NoError(t, err)
			assert.Equal(t, "app", set.User())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), logins.Load())
}

func TestHTTPVaultClient_AppRoleLogin(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth/approle/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "role-123", body["role_id"])
		assert.Equal(t, "secret-456", body["secret_id"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"auth": map[string]interface{}{"client_token": "approle-token"},
		})
	})

	client, err := NewHTTPVaultClient(Config{
		Address:         server.URL,
		AuthMethod:      "approle",
		AppRoleRoleID:   "role-123",
		AppRoleSecretID: "secret-456",
	})
	require.NoError(t, err)
	require.NoError(t, client.Authenticate(context.Background()))
	assert.Equal(t, "approle-token", client.token)
}

func TestHTTPVaultClient_PermissionDeniedInvalidatesToken(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
	})

	client, err := NewHTTPVaultClient(Config{Address: server.URL, AuthMethod: "token", Token: "t"})
	require.NoError(t, err)
	p := NewVaultProviderWithClient("vault", Config{}, client)

	_, err = p.Credentials(context.Background(), "orders")
	var ae *credentials.AuthError
	require.ErrorAs(t, err, &ae)

	client.mu.RLock()
	defer client.mu.RUnlock()
	assert.Empty(t, client.token)
}

func TestHTTPVaultClient_LoginFailure(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":["invalid role ID"]}`))
	})

	client, err := NewHTTPVaultClient(Config{Address: server.URL, AuthMethod: "approle", AppRoleRoleID: "x"})
	require.NoError(t, err)

	err = client.Authenticate(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestHTTPVaultClient_KubernetesLogin(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("jwt-value\n"), 0600))
	t.Setenv("VAULT_K8S_TOKEN_PATH", tokenPath)

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth/kubernetes/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jwt-value", body["jwt"])
		assert.Equal(t, "orders", body["role"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"auth": map[string]interface{}{"client_token": "k8s-token"},
		})
	})

	client, err := NewHTTPVaultClient(Config{Address: server.URL, AuthMethod: "k8s", K8SRole: "orders"})
	require.NoError(t, err)
	require.NoError(t, client.Authenticate(context.Background()))
}

func TestNewHTTPVaultClient_BadCACert(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0600))

	_, err := NewHTTPVaultClient(Config{Address: "https://vault", CACert: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no certificates found")
}
