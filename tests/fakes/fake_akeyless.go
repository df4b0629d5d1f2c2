package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/dscreds/internal/providers"
	"github.com/systmms/dscreds/internal/providers/contracts"
)

// FakeAkeylessClient is a test double for contracts.AkeylessClient
type FakeAkeylessClient struct {
	mu sync.Mutex

	// Token is the token returned by Authenticate
	Token string

	// TokenTTL is the TTL returned by Authenticate
	TokenTTL time.Duration

	// Secrets is a map of path to secret value
	Secrets map[string]string

	// AuthErr is returned by Authenticate if set
	AuthErr error

	// GetErr is returned by GetSecretValue if set (overrides Secrets lookup)
	GetErr error

	authCalls int
	getCalls  int
	tokens    []string
}

// NewFakeAkeylessClient creates a new fake Akeyless client with defaults
func NewFakeAkeylessClient() *FakeAkeylessClient {
	return &FakeAkeylessClient{
		Token:    "fake-akeyless-token",
		TokenTTL: 30 * time.Minute,
		Secrets:  make(map[string]string),
	}
}

// SetSecret adds a secret to the fake Akeyless
func (f *FakeAkeylessClient) SetSecret(path, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Secrets == nil {
		f.Secrets = make(map[string]string)
	}
	f.Secrets[path] = value
}

// Authenticate obtains an access token
func (f *FakeAkeylessClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authCalls++
	if f.AuthErr != nil {
		return "", 0, f.AuthErr
	}
	return f.Token, f.TokenTTL, nil
}

// GetSecretValue retrieves a secret by path
func (f *FakeAkeylessClient) GetSecretValue(ctx context.Context, token, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++
	f.tokens = append(f.tokens, token)
	if f.GetErr != nil {
		return "", f.GetErr
	}
	if value, ok := f.Secrets[path]; ok {
		return value, nil
	}
	return "", providers.ErrAkeylessSecretNotFound
}

// AuthCallCount returns how many times Authenticate was called
func (f *FakeAkeylessClient) AuthCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

// GetCallCount returns how many times GetSecretValue was called
func (f *FakeAkeylessClient) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

// Tokens returns the tokens presented to GetSecretValue, in call order
func (f *FakeAkeylessClient) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

// ErrFakeAkeylessUnauthorized is returned for auth failures
var ErrFakeAkeylessUnauthorized = &fakeAkeylessError{code: "unauthorized", message: "401 Unauthorized: token is expired"}

type fakeAkeylessError struct {
	code    string
	message string
}

func (e *fakeAkeylessError) Error() string {
	return e.message
}

func (e *fakeAkeylessError) Code() string {
	return e.code
}

// Ensure FakeAkeylessClient implements contracts.AkeylessClient
var _ contracts.AkeylessClient = (*FakeAkeylessClient)(nil)
