package contracts

import (
	"context"
	"time"
)

// AkeylessClient abstracts Akeyless SDK operations for testing
type AkeylessClient interface {
	// Authenticate obtains an access token
	Authenticate(ctx context.Context) (token string, expiresIn time.Duration, err error)

	// GetSecretValue retrieves the value stored at path
	GetSecretValue(ctx context.Context, token, path string) (string, error)
}
