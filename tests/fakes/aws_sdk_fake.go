package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
)

// FakeSecretsManagerClient is a mock Secrets Manager client
type FakeSecretsManagerClient struct {
	mu sync.RWMutex

	// Secrets maps secret names to their data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// ListSecretsErr is returned by ListSecrets if set
	ListSecretsErr error
	// GetSecretValueFunc allows custom behavior for GetSecretValue
	GetSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretData holds the data for a mock secret
type SecretData struct {
	SecretString  *string
	SecretBinary  []byte
	VersionId     *string
	VersionStages []string
	CreatedDate   *time.Time
}

// NewFakeSecretsManagerClient creates a new mock Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretString adds or replaces a string secret
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	f.Secrets[name] = &SecretData{
		SecretString:  aws.String(value),
		VersionId:     aws.String("v1-abc123"),
		VersionStages: []string{"AWSCURRENT"},
		CreatedDate:   &now,
	}
}

// AddSecretBinary adds a binary secret
func (f *FakeSecretsManagerClient) AddSecretBinary(name string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Secrets[name] = &SecretData{
		SecretBinary:  value,
		VersionId:     aws.String("v1-abc123"),
		VersionStages: []string{"AWSCURRENT"},
	}
}

// AddError configures the mock to return an error for a specific secret
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Errors[name] = err
}

// GetSecretValue mocks the GetSecretValue operation
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.GetSecretValueFunc != nil {
		return f.GetSecretValueFunc(ctx, params)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	secretName := aws.ToString(params.SecretId)
	if err, exists := f.Errors[secretName]; exists {
		return nil, err
	}

	data, exists := f.Secrets[secretName]
	if !exists {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", secretName)),
		}
	}

	return &secretsmanager.GetSecretValueOutput{
		ARN:           aws.String(fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", secretName)),
		Name:          params.SecretId,
		SecretString:  data.SecretString,
		SecretBinary:  data.SecretBinary,
		VersionId:     data.VersionId,
		VersionStages: data.VersionStages,
		CreatedDate:   data.CreatedDate,
	}, nil
}

// ListSecrets mocks the ListSecrets operation
func (f *FakeSecretsManagerClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.ListSecretsErr != nil {
		return nil, f.ListSecretsErr
	}
	var list []types.SecretListEntry
	for name := range f.Secrets {
		list = append(list, types.SecretListEntry{Name: aws.String(name)})
	}
	return &secretsmanager.ListSecretsOutput{SecretList: list}, nil
}

// FakeSSMClient is a mock SSM Parameter Store client
type FakeSSMClient struct {
	mu sync.RWMutex

	// Parameters maps parameter names to values
	Parameters map[string]string
	// Errors maps parameter names or paths to errors to return
	Errors map[string]error
	// PageSize limits parameters per GetParametersByPath page (0 = all)
	PageSize int
	// DescribeErr is returned by DescribeParameters if set
	DescribeErr error
}

// NewFakeSSMClient creates a new mock SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]string),
		Errors:     make(map[string]error),
	}
}

// AddParameter adds or replaces a parameter
func (f *FakeSSMClient) AddParameter(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Parameters[name] = value
}

// AddError configures the mock to return an error for a name or path
func (f *FakeSSMClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Errors[name] = err
}

// GetParameter mocks the GetParameter operation
func (f *FakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	name := aws.ToString(params.Name)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	value, exists := f.Parameters[name]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter not found: " + name)}
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:    aws.String(name),
			Value:   aws.String(value),
			Type:    ssmtypes.ParameterTypeSecureString,
			Version: 1,
		},
	}, nil
}

// GetParametersByPath mocks the GetParametersByPath operation. Only direct
// children of the path are returned, in name order.
func (f *FakeSSMClient) GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path := strings.TrimSuffix(aws.ToString(params.Path), "/")
	if err, exists := f.Errors[path]; exists {
		return nil, err
	}

	var names []string
	for name := range f.Parameters {
		rest, ok := strings.CutPrefix(name, path+"/")
		if ok && rest != "" && !strings.Contains(rest, "/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	start := 0
	if params.NextToken != nil {
		fmt.Sscanf(*params.NextToken, "%d", &start)
	}
	end := len(names)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}

	out := &ssm.GetParametersByPathOutput{}
	for _, name := range names[start:end] {
		out.Parameters = append(out.Parameters, ssmtypes.Parameter{
			Name:  aws.String(name),
			Value: aws.String(f.Parameters[name]),
		})
	}
	if end < len(names) {
		out.NextToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

// DescribeParameters mocks the DescribeParameters operation
func (f *FakeSSMClient) DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.DescribeErr != nil {
		return nil, f.DescribeErr
	}
	return &ssm.DescribeParametersOutput{}, nil
}

// FakeSTSClient is a mock STS client that issues a new key pair per call
type FakeSTSClient struct {
	mu sync.Mutex

	// Err is returned by AssumeRole if set
	Err error
	// CallerIdentityErr is returned by GetCallerIdentity if set
	CallerIdentityErr error
	// Inputs records every AssumeRole input
	Inputs []*sts.AssumeRoleInput
	// Expiration is the expiry reported for issued credentials
	Expiration time.Time
}

// NewFakeSTSClient creates a new mock STS client
func NewFakeSTSClient() *FakeSTSClient {
	return &FakeSTSClient{
		Expiration: time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// AssumeRole mocks the AssumeRole operation
func (f *FakeSTSClient) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Inputs = append(f.Inputs, params)
	if f.Err != nil {
		return nil, f.Err
	}

	n := len(f.Inputs)
	expiration := f.Expiration
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String(fmt.Sprintf("ASIAFAKE%04d", n)),
			SecretAccessKey: aws.String(fmt.Sprintf("secret-%d", n)),
			SessionToken:    aws.String(fmt.Sprintf("token-%d", n)),
			Expiration:      &expiration,
		},
		AssumedRoleUser: &ststypes.AssumedRoleUser{
			Arn:           aws.String(aws.ToString(params.RoleArn) + "/" + aws.ToString(params.RoleSessionName)),
			AssumedRoleId: aws.String("AROAFAKE:" + aws.ToString(params.RoleSessionName)),
		},
	}, nil
}

// GetCallerIdentity mocks the GetCallerIdentity operation
func (f *FakeSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CallerIdentityErr != nil {
		return nil, f.CallerIdentityErr
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/test"),
	}, nil
}

// AWSAccessDeniedError creates a mock AWS access denied error
func AWSAccessDeniedError(message string) error {
	return &smithy.GenericAPIError{Code: "AccessDeniedException", Message: message}
}

// AWSThrottlingError creates a mock AWS throttling error
func AWSThrottlingError() error {
	return &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"}
}
