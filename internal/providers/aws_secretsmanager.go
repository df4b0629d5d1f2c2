package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/systmms/dscreds/pkg/credentials"
)

// SecretsManagerClientAPI defines the AWS Secrets Manager operations used by
// the provider. This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// AWSSecretsManagerProvider reads credential sets stored as JSON secrets.
//
// A secret {"username": "app", "password": "s3cr3t", "sslmode": "require"}
// becomes user=app, password=s3cr3t and the extra key sslmode.
type AWSSecretsManagerProvider struct {
	name         string
	client       SecretsManagerClientAPI
	region       string
	versionStage string
	locator      locator
}

// ProviderOption is a functional option for configuring the Secrets Manager provider
type ProviderOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// NewAWSSecretsManagerProvider creates a new AWS Secrets Manager provider
func NewAWSSecretsManagerProvider(name string, providerConfig map[string]interface{}, opts ...ProviderOption) (*AWSSecretsManagerProvider, error) {
	settings := newAWSSettings(providerConfig)

	p := &AWSSecretsManagerProvider{
		name:         name,
		region:       settings.region,
		versionStage: getString(providerConfig, "version_stage"),
		locator:      newLocator(providerConfig),
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		cfg, err := settings.load(context.Background())
		if err != nil {
			return nil, err
		}

		var clientOpts []func(*secretsmanager.Options)
		if settings.endpoint != "" {
			endpoint := settings.endpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return p, nil
}

// Credentials fetches the secret mapped to name and decodes it.
func (p *AWSSecretsManagerProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	secretID := p.locator.locate(name)

	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	}
	if p.versionStage != "" {
		input.VersionStage = aws.String(p.versionStage)
	}

	result, err := p.client.GetSecretValue(ctx, input)
	if err != nil {
		return nil, p.handleError(err, secretID)
	}

	var raw string
	switch {
	case result.SecretString != nil:
		raw = *result.SecretString
	case result.SecretBinary != nil:
		raw = string(result.SecretBinary)
	default:
		return nil, fmt.Errorf("secret '%s' has no value", secretID)
	}

	set, err := parseSecretDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("secret '%s': %w", secretID, err)
	}
	return set, nil
}

// Validate checks that AWS credentials are configured and accepted
func (p *AWSSecretsManagerProvider) Validate(ctx context.Context) error {
	_, err := p.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return &credentials.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("AWS authentication failed: %v", err),
		}
	}
	return nil
}

// handleError converts AWS errors to provider errors
func (p *AWSSecretsManagerProvider) handleError(err error, secretID string) error {
	var resourceNotFound *types.ResourceNotFoundException
	if errors.As(err, &resourceNotFound) {
		return &credentials.NotFoundError{Provider: p.name, Key: secretID}
	}

	if isAWSAuthError(err) {
		return &credentials.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("AWS authentication/authorization failed: %v", err),
		}
	}

	return fmt.Errorf("AWS Secrets Manager error: %w", err)
}
