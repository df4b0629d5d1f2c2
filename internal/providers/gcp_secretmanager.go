package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/pkg/credentials"
)

// GCPSecretManagerAPI is the subset of the Secret Manager client used by the provider
type GCPSecretManagerAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) GCPSecretIterator
}

// GCPSecretIterator iterates over listed secrets
type GCPSecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// GCPSecretManagerProvider reads JSON credential documents from Google
// Cloud Secret Manager.
type GCPSecretManagerProvider struct {
	name      string
	client    GCPSecretManagerAPI
	closer    func() error
	projectID string
	version   string
	locator   locator
}

// GCPProviderOption is a functional option for configuring GCP providers
type GCPProviderOption func(*GCPSecretManagerProvider)

// WithGCPSecretManagerClient sets a custom client (for testing)
func WithGCPSecretManagerClient(client GCPSecretManagerAPI) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.client = client
	}
}

// NewGCPSecretManagerProvider creates a new GCP Secret Manager provider
func NewGCPSecretManagerProvider(name string, configMap map[string]interface{}, opts ...GCPProviderOption) (*GCPSecretManagerProvider, error) {
	p := &GCPSecretManagerProvider{
		name:      name,
		projectID: getString(configMap, "project_id"),
		version:   getString(configMap, "version"),
		locator:   newLocator(configMap),
	}
	if p.version == "" {
		p.version = "latest"
	}
	if p.projectID == "" {
		p.projectID = getGCPProjectID()
	}
	if p.projectID == "" {
		return nil, dserrors.ConfigError{
			Field:      "project_id",
			Message:    "project_id is required for GCP Secret Manager",
			Suggestion: "Set project_id in config or GOOGLE_CLOUD_PROJECT environment variable",
		}
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := createGCPSecretManagerClient(
			getString(configMap, "service_account_key_path"),
			getString(configMap, "impersonate_service_account"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		p.client = &gcpClientAdapter{client: client}
		p.closer = client.Close
	}

	return p, nil
}

func createGCPSecretManagerClient(keyPath, impersonateAccount string) (*secretmanager.Client, error) {
	ctx := context.Background()

	var clientOptions []option.ClientOption
	if keyPath != "" {
		if strings.HasPrefix(keyPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			keyPath = filepath.Join(home, keyPath[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(keyPath))
	}

	if impersonateAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: impersonateAccount,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = append(clientOptions, option.WithTokenSource(ts))
	}

	return secretmanager.NewClient(ctx, clientOptions...)
}

// getGCPProjectID reads the project from the usual environment variables
func getGCPProjectID() string {
	for _, env := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if projectID := os.Getenv(env); projectID != "" {
			return projectID
		}
	}
	return ""
}

// Credentials accesses the secret version mapped to name.
func (p *GCPSecretManagerProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	resourceName := p.buildResourceName(p.locator.locate(name))

	result, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return nil, p.handleError(err, resourceName)
	}
	if result.GetPayload() == nil || result.GetPayload().GetData() == nil {
		return nil, fmt.Errorf("secret '%s' has no data", resourceName)
	}

	set, err := parseSecretDocument(string(result.GetPayload().GetData()))
	if err != nil {
		return nil, fmt.Errorf("secret '%s': %w", resourceName, err)
	}
	return set, nil
}

// buildResourceName builds the full GCP resource name
func (p *GCPSecretManagerProvider) buildResourceName(secretName string) string {
	if strings.HasPrefix(secretName, "projects/") {
		if strings.Contains(secretName, "/versions/") {
			return secretName
		}
		return fmt.Sprintf("%s/versions/%s", secretName, p.version)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", p.projectID, secretName, p.version)
}

// Validate lists at most one secret to confirm access to the project
func (p *GCPSecretManagerProvider) Validate(ctx context.Context) error {
	it := p.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent:   "projects/" + p.projectID,
		PageSize: 1,
	})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return p.handleError(err, "projects/"+p.projectID)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (p *GCPSecretManagerProvider) Close() error {
	if p.closer != nil {
		return p.closer()
	}
	return nil
}

func (p *GCPSecretManagerProvider) handleError(err error, resourceName string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return &credentials.NotFoundError{Provider: p.name, Key: resourceName}
	case codes.PermissionDenied, codes.Unauthenticated:
		return &credentials.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("PermissionDenied accessing %s: %v", resourceName, status.Convert(err).Message()),
		}
	}
	return fmt.Errorf("GCP Secret Manager error: %w", err)
}

// gcpClientAdapter narrows *secretmanager.Client to GCPSecretManagerAPI.
type gcpClientAdapter struct {
	client *secretmanager.Client
}

func (a *gcpClientAdapter) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.client.AccessSecretVersion(ctx, req)
}

func (a *gcpClientAdapter) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) GCPSecretIterator {
	return a.client.ListSecrets(ctx, req)
}
