package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/pkg/credentials"
)

// STSClientAPI defines the AWS STS operations used by the provider
type STSClientAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSSTSProvider issues temporary AWS credentials with AssumeRole. The
// returned set carries user=AccessKeyId, password=SecretAccessKey plus
// session_token, expiration and assumed_role_arn.
//
// The role comes from roles[identity] when present, otherwise assume_role.
type AWSSTSProvider struct {
	name   string
	client STSClientAPI
	config STSConfig
}

// STSConfig holds AWS STS-specific configuration
type STSConfig struct {
	AssumeRole      string
	Roles           map[string]string
	RoleSessionName string
	ExternalID      string
	Duration        int32 // in seconds
	Policy          string
	Tags            map[string]string
}

// STSProviderOption is a functional option for configuring STS providers
type STSProviderOption func(*AWSSTSProvider)

// WithSTSClient sets a custom STS client (for testing)
func WithSTSClient(client STSClientAPI) STSProviderOption {
	return func(p *AWSSTSProvider) {
		p.client = client
	}
}

// NewAWSSTSProvider creates a new AWS STS provider
func NewAWSSTSProvider(name string, configMap map[string]interface{}, opts ...STSProviderOption) (*AWSSTSProvider, error) {
	config := STSConfig{
		AssumeRole:      getString(configMap, "assume_role"),
		Roles:           getStringMap(configMap, "roles"),
		RoleSessionName: getString(configMap, "role_session_name"),
		ExternalID:      getString(configMap, "external_id"),
		Policy:          getString(configMap, "session_policy"),
		Tags:            getStringMap(configMap, "tags"),
		Duration:        3600, // Default 1 hour
	}
	if config.RoleSessionName == "" {
		config.RoleSessionName = "dscreds-" + name
	}
	if duration, ok := getInt(configMap, "duration"); ok {
		if duration < 900 || duration > 43200 {
			return nil, dserrors.ConfigError{
				Field:      "duration",
				Value:      duration,
				Message:    "duration must be between 900 and 43200 seconds",
				Suggestion: "Use a session duration allowed by the role, for example 3600",
			}
		}
		config.Duration = int32(duration)
	}

	if config.AssumeRole == "" && len(config.Roles) == 0 {
		return nil, dserrors.ConfigError{
			Field:      "assume_role",
			Message:    "assume_role or roles is required for STS provider",
			Suggestion: "Provide the ARN of the role to assume",
		}
	}

	p := &AWSSTSProvider{name: name, config: config}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		settings := newAWSSettings(configMap)
		cfg, err := settings.load(context.Background())
		if err != nil {
			return nil, err
		}
		var clientOpts []func(*sts.Options)
		if settings.endpoint != "" {
			endpoint := settings.endpoint
			clientOpts = append(clientOpts, func(o *sts.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = sts.NewFromConfig(cfg, clientOpts...)
	}

	return p, nil
}

// Credentials assumes the role mapped to name and returns the session keys.
func (p *AWSSTSProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	roleArn, ok := p.config.Roles[name]
	if !ok {
		roleArn = p.config.AssumeRole
	}
	if roleArn == "" {
		return nil, &credentials.NotFoundError{Provider: p.name, Key: name}
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(p.config.RoleSessionName),
		DurationSeconds: aws.Int32(p.config.Duration),
	}
	if p.config.ExternalID != "" {
		input.ExternalId = aws.String(p.config.ExternalID)
	}
	if p.config.Policy != "" {
		input.Policy = aws.String(p.config.Policy)
	}
	if len(p.config.Tags) > 0 {
		keys := make([]string, 0, len(p.config.Tags))
		for k := range p.config.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			input.Tags = append(input.Tags, types.Tag{
				Key:   aws.String(k),
				Value: aws.String(p.config.Tags[k]),
			})
		}
	}

	result, err := p.client.AssumeRole(ctx, input)
	if err != nil {
		if isAWSAuthError(err) {
			return nil, &credentials.AuthError{
				Provider: p.name,
				Message:  fmt.Sprintf("failed to assume role %s: %v", roleArn, err),
			}
		}
		return nil, dserrors.UserError{
			Message:    "Failed to assume role",
			Details:    err.Error(),
			Suggestion: getSTSErrorSuggestion(err),
			Err:        err,
		}
	}
	if result.Credentials == nil {
		return nil, fmt.Errorf("AssumeRole for %s returned no credentials", roleArn)
	}

	creds := result.Credentials
	set := credentials.CredentialSet{
		credentials.UserKey:     aws.ToString(creds.AccessKeyId),
		credentials.PasswordKey: aws.ToString(creds.SecretAccessKey),
		"session_token":         aws.ToString(creds.SessionToken),
	}
	if creds.Expiration != nil {
		set["expiration"] = creds.Expiration.UTC().Format(time.RFC3339)
	}
	if result.AssumedRoleUser != nil && result.AssumedRoleUser.Arn != nil {
		set["assumed_role_arn"] = *result.AssumedRoleUser.Arn
	}
	return set, nil
}

// Validate checks the base credentials with sts:GetCallerIdentity
func (p *AWSSTSProvider) Validate(ctx context.Context) error {
	if _, err := p.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return dserrors.UserError{
			Message:    "Failed to validate AWS credentials",
			Details:    err.Error(),
			Suggestion: "Check AWS credentials and permissions to call sts:GetCallerIdentity",
			Err:        err,
		}
	}
	return nil
}

// getSTSErrorSuggestion provides helpful suggestions based on STS errors
func getSTSErrorSuggestion(err error) string {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "InvalidParameterValue"):
		return "Check the role ARN format and external ID if provided"
	case strings.Contains(errStr, "RegionDisabled"):
		return "The specified region is disabled for your account"
	default:
		return "Check AWS credentials, role ARN, and IAM permissions"
	}
}
