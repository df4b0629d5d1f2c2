package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/systmms/dscreds/internal/providers"
)

// FakeGCPSecretManagerClient is a mock GCP Secret Manager client
type FakeGCPSecretManagerClient struct {
	mu sync.RWMutex

	// Versions maps version resource names (projects/X/secrets/Y/versions/Z) to payloads
	Versions map[string][]byte
	// Errors maps resource names to errors to return
	Errors map[string]error
	// ListErr is yielded by the iterator returned from ListSecrets
	ListErr error
	// Accessed records the resource names passed to AccessSecretVersion
	Accessed []string
}

// NewFakeGCPSecretManagerClient creates a new mock GCP Secret Manager client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Versions: make(map[string][]byte),
		Errors:   make(map[string]error),
	}
}

// AddSecretVersion stores value under projects/P/secrets/S/versions/V
func (f *FakeGCPSecretManagerClient) AddSecretVersion(projectID, secretName, version string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Versions[fmt.Sprintf("projects/%s/secrets/%s/versions/%s", projectID, secretName, version)] = value
}

// AddSecretString stores value as the latest version of a secret
func (f *FakeGCPSecretManagerClient) AddSecretString(projectID, secretName, value string) {
	f.AddSecretVersion(projectID, secretName, "latest", []byte(value))
}

// AddError configures the mock to return an error for a specific resource
func (f *FakeGCPSecretManagerClient) AddError(resourceName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Errors[resourceName] = err
}

// AccessSecretVersion mocks the AccessSecretVersion operation
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Accessed = append(f.Accessed, req.Name)
	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}
	data, exists := f.Versions[req.Name]
	if !exists {
		return nil, GCPNotFoundError(req.Name)
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	}, nil
}

// ListSecrets mocks the ListSecrets operation
func (f *FakeGCPSecretManagerClient) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) providers.GCPSecretIterator {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.ListErr != nil {
		return NewFakeSecretIterator(nil, f.ListErr)
	}

	seen := make(map[string]bool)
	prefix := req.Parent + "/secrets/"
	for name := range f.Versions {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			seen[prefix+strings.SplitN(rest, "/", 2)[0]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	created := timestamppb.New(time.Now())
	secrets := make([]*secretmanagerpb.Secret, 0, len(names))
	for _, name := range names {
		secrets = append(secrets, &secretmanagerpb.Secret{Name: name, CreateTime: created})
	}
	return NewFakeSecretIterator(secrets, nil)
}

// FakeSecretIterator iterates over a fixed slice of secrets
type FakeSecretIterator struct {
	secrets []*secretmanagerpb.Secret
	index   int
	err     error
}

// NewFakeSecretIterator creates a new fake secret iterator
func NewFakeSecretIterator(secrets []*secretmanagerpb.Secret, err error) *FakeSecretIterator {
	return &FakeSecretIterator{secrets: secrets, err: err}
}

// Next returns the next secret in the iteration
func (it *FakeSecretIterator) Next() (*secretmanagerpb.Secret, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.index >= len(it.secrets) {
		return nil, iterator.Done
	}
	secret := it.secrets[it.index]
	it.index++
	return secret, nil
}

// GCPNotFoundError creates a mock GCP not found error
func GCPNotFoundError(resourceName string) error {
	return status.Errorf(codes.NotFound, "Secret version %s not found", resourceName)
}

// GCPPermissionDeniedError creates a mock GCP permission denied error
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GCPUnauthenticatedError creates a mock GCP unauthenticated error
func GCPUnauthenticatedError(message string) error {
	return status.Error(codes.Unauthenticated, message)
}

// GCPResourceExhaustedError creates a mock GCP resource exhausted (throttled) error
func GCPResourceExhaustedError() error {
	return status.Errorf(codes.ResourceExhausted, "Quota exceeded")
}

var _ providers.GCPSecretManagerAPI = (*FakeGCPSecretManagerClient)(nil)
