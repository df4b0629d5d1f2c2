package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/systmms/dscreds/pkg/credentials"
)

// SSMClientAPI defines the interface for AWS SSM Parameter Store operations
// This allows for mocking in tests
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
	DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error)
}

// AWSSSMProvider reads credential sets from Parameter Store. The identity
// maps to a parameter path and each parameter below it becomes one key:
//
//	/db/orders/username  -> user
//	/db/orders/password  -> password
//	/db/orders/sslmode   -> sslmode
//
// When the path holds no parameters, a single parameter with that exact
// name is read and decoded as a JSON document.
type AWSSSMProvider struct {
	name           string
	client         SSMClientAPI
	withDecryption bool
	locator        locator
}

// SSMProviderOption is a functional option for configuring SSM providers
type SSMProviderOption func(*AWSSSMProvider)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.client = client
	}
}

// NewAWSSSMProvider creates a new AWS SSM Parameter Store provider
func NewAWSSSMProvider(name string, configMap map[string]interface{}, opts ...SSMProviderOption) (*AWSSSMProvider, error) {
	settings := newAWSSettings(configMap)

	p := &AWSSSMProvider{
		name:           name,
		withDecryption: true, // SecureString parameters are decrypted by default
		locator:        newLocator(configMap),
	}
	if decrypt, ok := getBool(configMap, "with_decryption"); ok {
		p.withDecryption = decrypt
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		cfg, err := settings.load(context.Background())
		if err != nil {
			return nil, err
		}

		var clientOpts []func(*ssm.Options)
		if settings.endpoint != "" {
			endpoint := settings.endpoint
			clientOpts = append(clientOpts, func(o *ssm.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = ssm.NewFromConfig(cfg, clientOpts...)
	}

	return p, nil
}

// Credentials collects the parameters under the path mapped to name.
func (p *AWSSSMProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	path := p.locator.locate(name)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	doc := make(map[string]interface{})
	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(strings.TrimSuffix(path, "/")),
		WithDecryption: aws.Bool(p.withDecryption),
	}
	for {
		out, err := p.client.GetParametersByPath(ctx, input)
		if err != nil {
			return nil, p.handleError(err, path)
		}
		for _, param := range out.Parameters {
			if param.Name == nil || param.Value == nil {
				continue
			}
			doc[leafName(*param.Name)] = *param.Value
		}
		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		input.NextToken = out.NextToken
	}

	if len(doc) > 0 {
		return fromDocument(doc)
	}
	return p.getSingleParameter(ctx, path)
}

func (p *AWSSSMProvider) getSingleParameter(ctx context.Context, name string) (credentials.CredentialSet, error) {
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(p.withDecryption),
	})
	if err != nil {
		return nil, p.handleError(err, name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, &credentials.NotFoundError{Provider: p.name, Key: name}
	}

	set, err := parseSecretDocument(*out.Parameter.Value)
	if err != nil {
		return nil, fmt.Errorf("parameter '%s': %w", name, err)
	}
	return set, nil
}

// Validate checks that Parameter Store is reachable with the configured credentials
func (p *AWSSSMProvider) Validate(ctx context.Context) error {
	_, err := p.client.DescribeParameters(ctx, &ssm.DescribeParametersInput{
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

func (p *AWSSSMProvider) handleError(err error, key string) error {
	var notFound *types.ParameterNotFound
	if errors.As(err, &notFound) {
		return &credentials.NotFoundError{Provider: p.name, Key: key}
	}
	if isAWSAuthError(err) {
		return &credentials.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("AWS authentication/authorization failed: %v", err),
		}
	}
	return fmt.Errorf("AWS SSM error: %w", err)
}

func leafName(parameterName string) string {
	if idx := strings.LastIndex(parameterName, "/"); idx >= 0 {
		return parameterName[idx+1:]
	}
	return parameterName
}
