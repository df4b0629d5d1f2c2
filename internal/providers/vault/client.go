package vault

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
)

// DefaultKubernetesTokenPath is where Kubernetes mounts the service account token.
const DefaultKubernetesTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// StatusError is returned for non-success Vault responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vault returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPVaultClient implements VaultClient using the HTTP API
type HTTPVaultClient struct {
	config     Config
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPVaultClient creates a client for config. The TLS settings are
// applied once; the token is obtained lazily by Authenticate.
func NewHTTPVaultClient(config Config) (*HTTPVaultClient, error) {
	httpClient := &http.Client{Timeout: DefaultTimeout}

	if config.TLSSkip || config.CACert != "" {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: config.TLSSkip,
			MinVersion:         tls.VersionTLS12,
		}
		if config.CACert != "" {
			pem, err := os.ReadFile(config.CACert)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA certificate: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", config.CACert)
			}
			tlsConfig.RootCAs = pool
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	return &HTTPVaultClient{config: config, httpClient: httpClient}, nil
}

// Authenticate obtains a token with the configured method unless one is
// already held.
func (c *HTTPVaultClient) Authenticate(ctx context.Context) error {
	c.mu.RLock()
	have := c.token != ""
	c.mu.RUnlock()
	if have {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return nil
	}

	token, err := c.login(ctx)
	if err != nil {
		return err
	}
	c.token = token
	return nil
}

// Invalidate drops the held token so the next Authenticate logs in again.
func (c *HTTPVaultClient) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *HTTPVaultClient) login(ctx context.Context) (string, error) {
	switch c.config.AuthMethod {
	case "token":
		if c.config.Token != "" {
			return c.config.Token, nil
		}
		if token := os.Getenv("VAULT_TOKEN"); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("no vault token found in config or VAULT_TOKEN environment variable")
	case "userpass":
		password := c.config.UserpassPassword
		if password == "" {
			password = os.Getenv("VAULT_USERPASS_PASSWORD")
		}
		if password == "" {
			return "", fmt.Errorf("no password found for userpass auth")
		}
		return c.performLogin(ctx, "auth/userpass/login/"+c.config.UserpassUsername, map[string]interface{}{
			"password": password,
		})
	case "approle":
		secretID := c.config.AppRoleSecretID
		if secretID == "" {
			secretID = os.Getenv("VAULT_APPROLE_SECRET_ID")
		}
		return c.performLogin(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   c.config.AppRoleRoleID,
			"secret_id": secretID,
		})
	case "k8s", "kubernetes":
		tokenPath := DefaultKubernetesTokenPath
		if customPath := os.Getenv("VAULT_K8S_TOKEN_PATH"); customPath != "" {
			tokenPath = customPath
		}
		jwt, err := os.ReadFile(tokenPath)
		if err != nil {
			return "", fmt.Errorf("failed to read kubernetes token: %w", err)
		}
		return c.performLogin(ctx, "auth/kubernetes/login", map[string]interface{}{
			"role": c.config.K8SRole,
			"jwt":  strings.TrimSpace(string(jwt)),
		})
	default:
		return "", fmt.Errorf("unsupported auth method: %s", c.config.AuthMethod)
	}
}

// performLogin handles the common login workflow
func (c *HTTPVaultClient) performLogin(ctx context.Context, authPath string, authData map[string]interface{}) (string, error) {
	jsonData, err := json.Marshal(authData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(authPath), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setNamespace(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make auth request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("authentication failed: %w", &StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var authResp struct {
		Auth struct {
			ClientToken string `json:"client_token"`
		} `json:"auth"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if authResp.Auth.ClientToken == "" {
		return "", fmt.Errorf("no token received from vault")
	}
	return authResp.Auth.ClientToken, nil
}

// Read fetches a secret from Vault. A 404 yields (nil, nil).
func (c *HTTPVaultClient) Read(ctx context.Context, path string) (*VaultSecret, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token == "" {
		return nil, fmt.Errorf("not authenticated")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Vault-Token", token)
	c.setNamespace(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var secret VaultSecret
	if err := json.NewDecoder(resp.Body).Decode(&secret); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &secret, nil
}

// Close cleans up the client
func (c *HTTPVaultClient) Close() error {
	c.Invalidate()
	return nil
}

func (c *HTTPVaultClient) url(path string) string {
	return strings.TrimSuffix(c.config.Address, "/") + "/v1/" + strings.TrimPrefix(path, "/")
}

func (c *HTTPVaultClient) setNamespace(req *http.Request) {
	if c.config.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", c.config.Namespace)
	}
}
