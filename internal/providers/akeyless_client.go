package providers

import (
	"context"
	"fmt"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	"github.com/systmms/dscreds/internal/providers/contracts"
)

// akeylessTokenTTL is how long an Akeyless token is reused. Tokens last
// 30 minutes; 25 leaves headroom.
const akeylessTokenTTL = 25 * time.Minute

// akeylessSDKClient implements AkeylessClient using the official SDK
type akeylessSDKClient struct {
	apiClient *akeyless.APIClient
	config    AkeylessConfig
}

// newAkeylessSDKClient creates a new SDK client for Akeyless
func newAkeylessSDKClient(cfg AkeylessConfig) *akeylessSDKClient {
	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{
		{URL: cfg.GatewayURL},
	}

	return &akeylessSDKClient{
		apiClient: akeyless.NewAPIClient(configuration),
		config:    cfg,
	}
}

// Authenticate obtains an access token from Akeyless
func (c *akeylessSDKClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	authBody := akeyless.NewAuthWithDefaults()
	authBody.SetAccessId(c.config.AccessID)

	switch c.config.Auth.Method {
	case "api_key", "":
		authBody.SetAccessKey(c.config.Auth.AccessKey)
	case "aws_iam":
		authBody.SetAccessType("aws_iam")
	case "azure_ad":
		authBody.SetAccessType("azure_ad")
		if c.config.Auth.AzureADObjectID != "" {
			authBody.SetCloudId(c.config.Auth.AzureADObjectID)
		}
	case "gcp":
		authBody.SetAccessType("gcp")
		if c.config.Auth.GCPAudience != "" {
			authBody.SetGcpAudience(c.config.Auth.GCPAudience)
		}
	default:
		return "", 0, fmt.Errorf("unsupported authentication method: %s", c.config.Auth.Method)
	}

	authRes, _, err := c.apiClient.V2Api.Auth(ctx).Body(*authBody).Execute()
	if err != nil {
		return "", 0, fmt.Errorf("%s authentication failed: %w", c.authMethod(), err)
	}

	return authRes.GetToken(), akeylessTokenTTL, nil
}

func (c *akeylessSDKClient) authMethod() string {
	if c.config.Auth.Method == "" {
		return "api_key"
	}
	return c.config.Auth.Method
}

// GetSecretValue retrieves a static secret by path
func (c *akeylessSDKClient) GetSecretValue(ctx context.Context, token, path string) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)

	res, _, err := c.apiClient.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return "", err
	}

	// GetSecretValue returns a map of path -> value
	value, ok := res[path]
	if !ok {
		return "", ErrAkeylessSecretNotFound
	}
	return value, nil
}

// Ensure akeylessSDKClient implements contracts.AkeylessClient
var _ contracts.AkeylessClient = (*akeylessSDKClient)(nil)
