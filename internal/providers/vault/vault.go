package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/pkg/credentials"
)

const (
	DefaultVaultAddr = "https://127.0.0.1:8200"
	DefaultTimeout   = 30 * time.Second

	// ModeKV reads a KV v2 secret at {mount}/data/{path}.
	ModeKV = "kv"
	// ModeDynamic reads generated credentials at {mount}/creds/{role}.
	ModeDynamic = "dynamic"
)

// VaultProvider serves credential sets from HashiCorp Vault, either stored
// in a KV v2 engine or generated by a secrets engine such as database.
type VaultProvider struct {
	name   string
	config Config
	client VaultClient
}

// Config holds Vault-specific configuration
type Config struct {
	Address    string            // Vault server address
	Token      string            // Vault token (discouraged, use env var)
	AuthMethod string            // token, userpass, approle, k8s
	Namespace  string            // Vault namespace (Vault Enterprise)
	Mode       string            // kv or dynamic
	Mount      string            // secrets engine mount
	Prefix     string            // prepended to identities
	Secrets    map[string]string // identity -> path or role

	// Auth method specific configs
	UserpassUsername string
	UserpassPassword string
	AppRoleRoleID    string
	AppRoleSecretID  string
	K8SRole          string

	CACert  string // Path to CA certificate
	TLSSkip bool   // Skip TLS verification (not recommended)
}

// VaultClient interface for testability
type VaultClient interface {
	Read(ctx context.Context, path string) (*VaultSecret, error)
	Authenticate(ctx context.Context) error
	Close() error
}

// VaultSecret is a Vault API response body
type VaultSecret struct {
	LeaseID       string                 `json:"lease_id"`
	LeaseDuration int                    `json:"lease_duration"`
	Renewable     bool                   `json:"renewable"`
	Data          map[string]interface{} `json:"data"`
}

// NewVaultProvider creates a new Vault provider
func NewVaultProvider(name string, configMap map[string]interface{}) (*VaultProvider, error) {
	config, err := parseConfig(configMap)
	if err != nil {
		return nil, err
	}

	client, err := NewHTTPVaultClient(config)
	if err != nil {
		return nil, dserrors.ConfigError{
			Field:      "ca_cert",
			Value:      config.CACert,
			Message:    err.Error(),
			Suggestion: "Point ca_cert at a PEM encoded CA bundle",
		}
	}
	return NewVaultProviderWithClient(name, config, client), nil
}

// NewVaultProviderWithClient creates a provider with a custom client (for testing)
func NewVaultProviderWithClient(name string, config Config, client VaultClient) *VaultProvider {
	if config.Mode == "" {
		config.Mode = ModeKV
	}
	if config.Mount == "" {
		config.Mount = defaultMount(config.Mode)
	}
	return &VaultProvider{name: name, config: config, client: client}
}

func parseConfig(configMap map[string]interface{}) (Config, error) {
	config := Config{
		Address:          DefaultVaultAddr,
		AuthMethod:       "token",
		Mode:             ModeKV,
		Token:            stringValue(configMap, "token"),
		Namespace:        stringValue(configMap, "namespace"),
		Mount:            stringValue(configMap, "mount"),
		Prefix:           stringValue(configMap, "prefix"),
		Secrets:          stringMapValue(configMap, "secrets"),
		UserpassUsername: stringValue(configMap, "userpass_username"),
		UserpassPassword: stringValue(configMap, "userpass_password"),
		AppRoleRoleID:    stringValue(configMap, "approle_role_id"),
		AppRoleSecretID:  stringValue(configMap, "approle_secret_id"),
		K8SRole:          stringValue(configMap, "k8s_role"),
		CACert:           stringValue(configMap, "ca_cert"),
	}
	if addr := stringValue(configMap, "address"); addr != "" {
		config.Address = addr
	}
	if method := stringValue(configMap, "auth_method"); method != "" {
		config.AuthMethod = method
	}
	if mode := stringValue(configMap, "mode"); mode != "" {
		config.Mode = mode
	}
	if tlsSkip, ok := configMap["tls_skip"].(bool); ok {
		config.TLSSkip = tlsSkip
	}

	// Override with environment variables
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	if namespace := os.Getenv("VAULT_NAMESPACE"); namespace != "" {
		config.Namespace = namespace
	}
	if caCert := os.Getenv("VAULT_CACERT"); caCert != "" {
		config.CACert = caCert
	}
	if tlsSkip := os.Getenv("VAULT_SKIP_VERIFY"); tlsSkip == "1" || strings.ToLower(tlsSkip) == "true" {
		config.TLSSkip = true
	}

	if config.Mode != ModeKV && config.Mode != ModeDynamic {
		return config, dserrors.ConfigError{
			Field:      "mode",
			Value:      config.Mode,
			Message:    "unsupported vault mode",
			Suggestion: "Use 'kv' for stored credentials or 'dynamic' for generated database credentials",
		}
	}
	if err := validateAuthConfig(config); err != nil {
		return config, err
	}
	return config, nil
}

func defaultMount(mode string) string {
	if mode == ModeDynamic {
		return "database"
	}
	return "secret"
}

func validateAuthConfig(config Config) error {
	switch config.AuthMethod {
	case "token":
	case "userpass":
		if config.UserpassUsername == "" {
			return dserrors.ConfigError{
				Field:      "userpass_username",
				Message:    "Username is required for userpass auth",
				Suggestion: "Set 'userpass_username' in provider config",
			}
		}
	case "approle":
		if config.AppRoleRoleID == "" {
			return dserrors.ConfigError{
				Field:      "approle_role_id",
				Message:    "Role ID is required for approle auth",
				Suggestion: "Set 'approle_role_id' in provider config",
			}
		}
	case "k8s", "kubernetes":
		if config.K8SRole == "" {
			return dserrors.ConfigError{
				Field:      "k8s_role",
				Message:    "Kubernetes role is required for k8s auth",
				Suggestion: "Set 'k8s_role' in provider config",
			}
		}
	default:
		return dserrors.ConfigError{
			Field:      "auth_method",
			Value:      config.AuthMethod,
			Message:    "unsupported authentication method",
			Suggestion: "Supported methods: token, userpass, approle, k8s",
		}
	}
	return nil
}

// Credentials reads the set for name from the configured engine.
func (v *VaultProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	if err := v.client.Authenticate(ctx); err != nil {
		return nil, v.authError(err)
	}

	path := v.path(name)
	secret, err := v.client.Read(ctx, path)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusForbidden || statusErr.StatusCode == http.StatusUnauthorized) {
			if inv, ok := v.client.(interface{ Invalidate() }); ok {
				inv.Invalidate()
			}
			return nil, &credentials.AuthError{
				Provider: v.name,
				Message:  fmt.Sprintf("permission denied reading %s", path),
			}
		}
		return nil, dserrors.UserError{
			Message:    "Failed to read credentials from Vault",
			Details:    err.Error(),
			Suggestion: v.getVaultErrorSuggestion(err),
			Err:        err,
		}
	}
	if secret == nil || secret.Data == nil {
		return nil, &credentials.NotFoundError{Provider: v.name, Key: path}
	}

	if v.config.Mode == ModeDynamic {
		set, err := toCredentialSet(secret.Data)
		if err != nil {
			return nil, err
		}
		if secret.LeaseID != "" {
			set["lease_id"] = secret.LeaseID
		}
		set["lease_duration"] = strconv.Itoa(secret.LeaseDuration)
		set["renewable"] = strconv.FormatBool(secret.Renewable)
		return set, nil
	}

	// KV v2 nests the document under data.data
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, &credentials.NotFoundError{Provider: v.name, Key: path}
	}
	return toCredentialSet(data)
}

// path builds the API path for identity
func (v *VaultProvider) path(identity string) string {
	location := v.config.Prefix + identity
	if mapped, ok := v.config.Secrets[identity]; ok && mapped != "" {
		location = mapped
	}
	location = strings.TrimPrefix(location, "/")
	mount := strings.Trim(v.config.Mount, "/")

	if v.config.Mode == ModeDynamic {
		return mount + "/creds/" + location
	}
	return mount + "/data/" + location
}

// Validate checks configuration and authenticates
func (v *VaultProvider) Validate(ctx context.Context) error {
	if v.config.Address == "" {
		return dserrors.ConfigError{
			Field:      "address",
			Message:    "Vault address is required",
			Suggestion: "Set 'address' in provider config or VAULT_ADDR environment variable",
		}
	}
	if v.config.AuthMethod == "token" && v.config.Token == "" && os.Getenv("VAULT_TOKEN") == "" {
		return dserrors.ConfigError{
			Field:      "token",
			Message:    "Vault token is required for token auth",
			Suggestion: "Set 'token' in provider config or VAULT_TOKEN environment variable",
		}
	}
	if err := v.client.Authenticate(ctx); err != nil {
		return dserrors.UserError{
			Message:    "Failed to authenticate with Vault",
			Details:    err.Error(),
			Suggestion: v.getVaultErrorSuggestion(err),
			Err:        err,
		}
	}
	return nil
}

// Close releases the client token
func (v *VaultProvider) Close() error {
	return v.client.Close()
}

func (v *VaultProvider) authError(err error) error {
	return &credentials.AuthError{
		Provider: v.name,
		Message:  fmt.Sprintf("vault authentication failed: %v", err),
	}
}

// getVaultErrorSuggestion provides helpful suggestions based on Vault errors
func (v *VaultProvider) getVaultErrorSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused"):
		return "Check that Vault server is running and accessible at " + v.config.Address
	case strings.Contains(errStr, "permission denied"):
		return "Check your Vault token permissions for this path"
	case strings.Contains(errStr, "invalid token"):
		return "Your Vault token may be expired or invalid. Try 'vault login' to refresh"
	case strings.Contains(errStr, "namespace"):
		return "Check your Vault namespace configuration"
	case strings.Contains(errStr, "tls"):
		return "Check TLS configuration or set ca_cert to the Vault CA bundle"
	default:
		return "Check your Vault configuration and connectivity. Run 'dscreds doctor' for diagnostics"
	}
}

// toCredentialSet folds username onto user and stringifies every value.
func toCredentialSet(data map[string]interface{}) (credentials.CredentialSet, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make(credentials.CredentialSet, len(data))
	for _, k := range keys {
		value, err := stringify(data[k])
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", k, err)
		}
		if k == "username" {
			if _, taken := data[credentials.UserKey]; taken {
				continue
			}
			k = credentials.UserKey
		}
		set[k] = value
	}
	return set, nil
}

func stringify(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	case nil:
		return "", nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("failed to convert value to string: %w", err)
		}
		return string(b), nil
	}
}

func stringValue(configMap map[string]interface{}, key string) string {
	if v, ok := configMap[key].(string); ok {
		return v
	}
	return ""
}

func stringMapValue(configMap map[string]interface{}, key string) map[string]string {
	out := make(map[string]string)
	if m, ok := configMap[key].(map[string]interface{}); ok {
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}
