package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/dscreds/internal/config"
	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/internal/providers"
	"github.com/systmms/dscreds/pkg/credentials"
)

func TestFactoriesSupportedTypes(t *testing.T) {
	t.Parallel()

	f := providers.NewFactories()
	assert.Equal(t, []string{
		"akeyless",
		"aws.secretsmanager",
		"aws.ssm",
		"aws.sts",
		"azure.keyvault",
		"env",
		"gcp.secretmanager",
		"keychain",
		"static",
		"vault",
	}, f.SupportedTypes())
	assert.True(t, f.IsSupported("vault"))
	assert.False(t, f.IsSupported("bitwarden"))
}

func TestFactoriesCreate(t *testing.T) {
	t.Parallel()

	f := providers.NewFactories()

	p, err := f.Create("local", config.ProviderConfig{
		Type:   "static",
		Config: map[string]interface{}{"user": "app", "password": "pw"},
	})
	require.NoError(t, err)
	set, err := p.Credentials(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, "app", set.User())

	p, err = f.Create("environment", config.ProviderConfig{Type: "env"})
	require.NoError(t, err)
	assert.IsType(t, &providers.EnvProvider{}, p)

	p, err = f.Create("os", config.ProviderConfig{Type: "keychain"})
	require.NoError(t, err)
	assert.IsType(t, &providers.KeychainProvider{}, p)
}

func TestFactoriesCreateErrors(t *testing.T) {
	t.Parallel()

	f := providers.NewFactories()

	_, err := f.Create("x", config.ProviderConfig{Type: "bitwarden"})
	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "providers.x.type", cfgErr.Field)
	assert.Contains(t, cfgErr.Suggestion, "static")

	_, err = f.Create("secrets", config.ProviderConfig{Type: "akeyless"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider secrets (akeyless)")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "access_id", cfgErr.Field)
}

func TestFactoriesRegisterFactory(t *testing.T) {
	t.Parallel()

	f := providers.NewFactories()
	f.RegisterFactory("inline", func(name string, cfg map[string]interface{}) (credentials.Provider, error) {
		return credentials.ProviderFunc(func(ctx context.Context, identity string) (credentials.CredentialSet, error) {
			return credentials.CredentialSet{"user": identity, "password": cfg["password"].(string)}, nil
		}), nil
	})

	p, err := f.Create("custom", config.ProviderConfig{
		Type:   "inline",
		Config: map[string]interface{}{"password": "pw"},
	})
	require.NoError(t, err)

	set, err := p.Credentials(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, credentials.CredentialSet{"user": "orders", "password": "pw"}, set)
}
