package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/internal/providers/contracts"
	"github.com/systmms/dscreds/pkg/credentials"
)

// DefaultAkeylessGateway is the public Akeyless API endpoint
const DefaultAkeylessGateway = "https://api.akeyless.io"

// AkeylessConfig holds configuration for the Akeyless provider
type AkeylessConfig struct {
	// AccessID is the Akeyless access ID (required)
	AccessID string

	// GatewayURL is the custom gateway URL for enterprise deployments
	GatewayURL string

	Auth AkeylessAuth
}

// AkeylessAuth defines authentication method for Akeyless
type AkeylessAuth struct {
	// Method is one of "api_key", "aws_iam", "azure_ad", "gcp"
	Method string

	AccessKey       string
	AzureADObjectID string
	GCPAudience     string
}

// AkeylessProvider reads JSON credential documents stored as Akeyless
// static secrets. The API token is cached until shortly before expiry.
type AkeylessProvider struct {
	name       string
	config     AkeylessConfig
	client     contracts.AkeylessClient
	locator    locator
	tokenCache *TokenCache

	// authMu serialises re-authentication so concurrent calls share one token.
	authMu sync.Mutex
}

// NewAkeylessProvider creates a new Akeyless provider
func NewAkeylessProvider(name string, config map[string]interface{}) (*AkeylessProvider, error) {
	cfg, err := parseAkeylessConfig(config)
	if err != nil {
		return nil, err
	}
	return NewAkeylessProviderWithClient(name, config, newAkeylessSDKClient(cfg))
}

// NewAkeylessProviderWithClient creates an Akeyless provider with a custom client.
// This is primarily for testing, allowing the SDK client to be mocked.
func NewAkeylessProviderWithClient(name string, config map[string]interface{}, client contracts.AkeylessClient) (*AkeylessProvider, error) {
	cfg, err := parseAkeylessConfig(config)
	if err != nil {
		return nil, err
	}
	return &AkeylessProvider{
		name:       name,
		config:     cfg,
		client:     client,
		locator:    newLocator(config),
		tokenCache: NewTokenCache(),
	}, nil
}

// Credentials fetches the static secret mapped to name.
func (p *AkeylessProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	path := p.locator.locate(name)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	token, err := p.getToken(ctx)
	if err != nil {
		return nil, err
	}

	value, err := p.client.GetSecretValue(ctx, token, path)
	if err != nil {
		if isAkeylessNotFoundError(err) {
			return nil, ToNotFoundError(p.name, path)
		}
		if isAkeylessAuthError(err) {
			// The token may have been revoked; forget it so the next call re-authenticates.
			p.tokenCache.Clear()
			return nil, ToAuthError(p.name, err)
		}
		return nil, &AkeylessError{
			Op:      "fetch",
			Path:    path,
			Message: err.Error(),
			Err:     err,
		}
	}

	set, err := parseSecretDocument(value)
	if err != nil {
		return nil, fmt.Errorf("akeyless secret '%s': %w", path, err)
	}
	return set, nil
}

// Validate checks if the provider can authenticate
func (p *AkeylessProvider) Validate(ctx context.Context) error {
	if _, err := p.getToken(ctx); err != nil {
		return fmt.Errorf("akeyless validation failed: %w", err)
	}
	return nil
}

// getToken returns a cached token or authenticates to get a new one
func (p *AkeylessProvider) getToken(ctx context.Context) (string, error) {
	if token, ok := p.tokenCache.Get(); ok {
		return token, nil
	}

	p.authMu.Lock()
	defer p.authMu.Unlock()

	// Another caller may have refreshed while we waited
	if token, ok := p.tokenCache.Get(); ok {
		return token, nil
	}

	token, ttl, err := p.client.Authenticate(ctx)
	if err != nil {
		return "", &credentials.AuthError{
			Provider: p.name,
			Message:  (&AkeylessError{Op: "auth", Message: err.Error(), Err: err}).Error(),
		}
	}

	p.tokenCache.Set(token, ttl)
	return token, nil
}

// parseAkeylessConfig parses configuration map into AkeylessConfig
func parseAkeylessConfig(config map[string]interface{}) (AkeylessConfig, error) {
	cfg := AkeylessConfig{
		AccessID:   getString(config, "access_id"),
		GatewayURL: getString(config, "gateway_url"),
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultAkeylessGateway
	}

	if auth, ok := config["auth"].(map[string]interface{}); ok {
		cfg.Auth = AkeylessAuth{
			Method:          getString(auth, "method"),
			AccessKey:       getString(auth, "access_key"),
			AzureADObjectID: getString(auth, "azure_ad_object_id"),
			GCPAudience:     getString(auth, "gcp_audience"),
		}
	}

	if cfg.AccessID == "" {
		return cfg, dserrors.ConfigError{
			Field:      "access_id",
			Message:    "access_id is required for Akeyless",
			Suggestion: "Set access_id to the Akeyless access ID (p-xxxx)",
		}
	}
	switch cfg.Auth.Method {
	case "", "api_key":
		if cfg.Auth.AccessKey == "" {
			return cfg, dserrors.ConfigError{
				Field:      "auth.access_key",
				Message:    "access_key is required for api_key authentication",
				Suggestion: "Set auth.access_key or choose another auth.method",
			}
		}
	case "aws_iam", "azure_ad", "gcp":
	default:
		return cfg, dserrors.ConfigError{
			Field:      "auth.method",
			Value:      cfg.Auth.Method,
			Message:    "unsupported authentication method",
			Suggestion: "Use one of: api_key, aws_iam, azure_ad, gcp",
		}
	}
	return cfg, nil
}

// isAkeylessNotFoundError checks if an error indicates secret not found
func isAkeylessNotFoundError(err error) bool {
	if errors.Is(err, ErrAkeylessSecretNotFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "itemNotFound")
}

func isAkeylessAuthError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "token is expired")
}
