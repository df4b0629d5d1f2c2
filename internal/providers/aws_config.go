package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"
)

// DefaultAWSRegion is used when neither the provider block nor the
// environment names a region.
const DefaultAWSRegion = "us-east-1"

// awsSettings are the connection settings shared by every AWS provider type.
type awsSettings struct {
	region          string
	profile         string
	endpoint        string // custom endpoint for LocalStack
	accessKeyID     string
	secretAccessKey string
}

func newAWSSettings(config map[string]interface{}) awsSettings {
	s := awsSettings{
		region:          getString(config, "region"),
		profile:         getString(config, "profile"),
		endpoint:        getString(config, "endpoint"),
		accessKeyID:     getString(config, "access_key_id"),
		secretAccessKey: getString(config, "secret_access_key"),
	}
	if s.region == "" {
		s.region = DefaultAWSRegion
	}
	return s
}

// load resolves an aws.Config from the default chain plus the overrides.
func (s awsSettings) load(ctx context.Context) (aws.Config, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(s.region))

	if s.profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(s.profile))
	}

	// Static credentials are meant for LocalStack and tests
	if s.accessKeyID != "" && s.secretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(s.accessKeyID, s.secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// isAWSAuthError reports whether err is an AWS authentication or
// authorization failure.
func isAWSAuthError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation",
			"InvalidClientTokenId", "ExpiredToken", "ExpiredTokenException",
			"UnrecognizedClientException", "SignatureDoesNotMatch":
			return true
		}
	}
	errStr := err.Error()
	return strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "UnauthorizedOperation") ||
		strings.Contains(errStr, "InvalidUserID") ||
		strings.Contains(errStr, "Forbidden")
}
