package providers

import (
	"fmt"
	"sort"

	"github.com/systmms/dscreds/internal/config"
	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/internal/providers/vault"
	"github.com/systmms/dscreds/pkg/credentials"
)

// Factories maps provider types (the `type:` of a provider block) to the
// constructors that build them.
type Factories struct {
	factories map[string]ProviderFactory
}

// ProviderFactory creates a provider instance from configuration
type ProviderFactory func(name string, config map[string]interface{}) (credentials.Provider, error)

// NewFactories creates a factory set with the built-in provider types
func NewFactories() *Factories {
	f := &Factories{
		factories: make(map[string]ProviderFactory),
	}

	f.RegisterFactory("static", NewStaticProviderFactory)
	f.RegisterFactory("env", NewEnvProviderFactory)
	f.RegisterFactory("aws.secretsmanager", NewAWSSecretsManagerProviderFactory)
	f.RegisterFactory("aws.ssm", NewAWSSSMProviderFactory)
	f.RegisterFactory("aws.sts", NewAWSSTSProviderFactory)
	f.RegisterFactory("gcp.secretmanager", NewGCPSecretManagerProviderFactory)
	f.RegisterFactory("azure.keyvault", NewAzureKeyVaultProviderFactory)
	f.RegisterFactory("vault", NewVaultProviderFactory)
	f.RegisterFactory("akeyless", NewAkeylessProviderFactory)
	f.RegisterFactory("keychain", NewKeychainProviderFactory)

	return f
}

// RegisterFactory registers a provider factory for a given type.
// Registering a type twice replaces the earlier factory.
func (f *Factories) RegisterFactory(providerType string, factory ProviderFactory) {
	f.factories[providerType] = factory
}

// Create builds the provider declared by cfg
func (f *Factories) Create(name string, cfg config.ProviderConfig) (credentials.Provider, error) {
	factory, exists := f.factories[cfg.Type]
	if !exists {
		return nil, dserrors.ConfigError{
			Field:      fmt.Sprintf("providers.%s.type", name),
			Value:      cfg.Type,
			Message:    "unknown provider type",
			Suggestion: fmt.Sprintf("Supported types: %v", f.SupportedTypes()),
		}
	}

	settings := cfg.Config
	if settings == nil {
		settings = map[string]interface{}{}
	}
	p, err := factory(name, settings)
	if err != nil {
		return nil, fmt.Errorf("provider %s (%s): %w", name, cfg.Type, err)
	}
	return p, nil
}

// SupportedTypes returns the registered provider types in lexical order
func (f *Factories) SupportedTypes() []string {
	types := make([]string, 0, len(f.factories))
	for providerType := range f.factories {
		types = append(types, providerType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a provider type is supported
func (f *Factories) IsSupported(providerType string) bool {
	_, exists := f.factories[providerType]
	return exists
}

// Factory functions for built-in providers

// NewStaticProviderFactory creates a static provider factory
func NewStaticProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewStaticProviderFromConfig(name, config)
}

// NewEnvProviderFactory creates an environment provider factory
func NewEnvProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewEnvProvider(name, getString(config, "prefix")), nil
}

// NewAWSSecretsManagerProviderFactory creates an AWS Secrets Manager provider factory
func NewAWSSecretsManagerProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewAWSSecretsManagerProvider(name, config)
}

// NewAWSSSMProviderFactory creates an AWS SSM Parameter Store provider factory
func NewAWSSSMProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewAWSSSMProvider(name, config)
}

// NewAWSSTSProviderFactory creates an AWS STS provider factory
func NewAWSSTSProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewAWSSTSProvider(name, config)
}

// NewGCPSecretManagerProviderFactory creates a GCP Secret Manager provider factory
func NewGCPSecretManagerProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewGCPSecretManagerProvider(name, config)
}

// NewAzureKeyVaultProviderFactory creates an Azure Key Vault provider factory
func NewAzureKeyVaultProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewAzureKeyVaultProvider(name, config)
}

// NewVaultProviderFactory creates a HashiCorp Vault provider factory
func NewVaultProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return vault.NewVaultProvider(name, config)
}

// NewAkeylessProviderFactory creates an Akeyless provider factory
func NewAkeylessProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewAkeylessProvider(name, config)
}

// NewKeychainProviderFactory creates an OS keychain provider factory
func NewKeychainProviderFactory(name string, config map[string]interface{}) (credentials.Provider, error) {
	return NewKeychainProvider(name, config), nil
}
