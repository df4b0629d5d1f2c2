package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/pkg/credentials"
)

// validationProbeSecret is fetched by Validate. A 404 proves the vault
// accepted our credentials.
const validationProbeSecret = "dscreds-validate"

// AzureKeyVaultClientAPI defines the interface for Azure Key Vault operations
// This allows for mocking in tests
type AzureKeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVaultProvider reads JSON credential documents from Azure Key Vault.
// Key Vault names allow only letters, digits and dashes, so underscores and
// slashes in the located name are replaced with dashes.
type AzureKeyVaultProvider struct {
	name     string
	client   AzureKeyVaultClientAPI
	config   AzureKeyVaultConfig
	locator  locator
	vaultURL string
}

// AzureKeyVaultConfig holds Azure Key Vault-specific configuration
type AzureKeyVaultConfig struct {
	VaultURL           string
	TenantID           string
	ClientID           string
	ClientSecret       string
	UseManagedIdentity bool
	UserAssignedID     string // For user-assigned managed identity
}

// AzureProviderOption is a functional option for configuring Azure providers
type AzureProviderOption func(*AzureKeyVaultProvider)

// WithAzureKeyVaultClient sets a custom Azure Key Vault client (for testing)
func WithAzureKeyVaultClient(client AzureKeyVaultClientAPI) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.client = client
	}
}

// NewAzureKeyVaultProvider creates a new Azure Key Vault provider
func NewAzureKeyVaultProvider(name string, configMap map[string]interface{}, opts ...AzureProviderOption) (*AzureKeyVaultProvider, error) {
	config := AzureKeyVaultConfig{
		VaultURL:       getString(configMap, "vault_url"),
		TenantID:       getString(configMap, "tenant_id"),
		ClientID:       getString(configMap, "client_id"),
		ClientSecret:   getString(configMap, "client_secret"),
		UserAssignedID: getString(configMap, "user_assigned_identity_id"),
	}
	if useMI, ok := getBool(configMap, "use_managed_identity"); ok {
		config.UseManagedIdentity = useMI
	}

	if config.VaultURL == "" {
		return nil, dserrors.ConfigError{
			Field:      "vault_url",
			Message:    "vault_url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if u, err := url.Parse(config.VaultURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, dserrors.ConfigError{
			Field:      "vault_url",
			Value:      config.VaultURL,
			Message:    "Invalid vault_url format",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}

	p := &AzureKeyVaultProvider{
		name:     name,
		config:   config,
		locator:  newLocator(configMap),
		vaultURL: config.VaultURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := createAzureKeyVaultClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Key Vault client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// createAzureKeyVaultClient creates an Azure Key Vault client with appropriate authentication
func createAzureKeyVaultClient(config AzureKeyVaultConfig) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	switch {
	case config.UseManagedIdentity && config.UserAssignedID != "":
		cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(config.UserAssignedID),
		})
	case config.UseManagedIdentity:
		cred, err = azidentity.NewManagedIdentityCredential(nil)
	case config.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(config.TenantID, config.ClientID, config.ClientSecret, nil)
	default:
		// Azure CLI, environment or workload identity
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(config.VaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return client, nil
}

// Credentials fetches the latest version of the secret mapped to name.
func (p *AzureKeyVaultProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	secretName := azureSecretName(p.locator.locate(name))

	resp, err := p.client.GetSecret(ctx, secretName, "", nil)
	if err != nil {
		return nil, p.handleError(err, secretName)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("secret '%s' has no value", secretName)
	}

	set, err := parseSecretDocument(*resp.Value)
	if err != nil {
		return nil, fmt.Errorf("secret '%s': %w", secretName, err)
	}
	return set, nil
}

// Validate fetches a health-check secret; a 404 for it still proves access.
func (p *AzureKeyVaultProvider) Validate(ctx context.Context) error {
	_, err := p.client.GetSecret(ctx, validationProbeSecret, "", nil)
	if err == nil {
		return nil
	}
	var notFound *credentials.NotFoundError
	if mapped := p.handleError(err, validationProbeSecret); !errors.As(mapped, &notFound) {
		return mapped
	}
	return nil
}

func (p *AzureKeyVaultProvider) handleError(err error, secretName string) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return &credentials.NotFoundError{Provider: p.name, Key: secretName}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &credentials.AuthError{
				Provider: p.name,
				Message:  fmt.Sprintf("Forbidden reading %s from %s: %s", secretName, p.vaultURL, respErr.ErrorCode),
			}
		}
	}
	return fmt.Errorf("Azure Key Vault error: %w", err)
}

func azureSecretName(location string) string {
	return strings.NewReplacer("_", "-", "/", "-").Replace(location)
}
