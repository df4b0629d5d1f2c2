package fakes

import (
	"sync"

	"github.com/systmms/dscreds/internal/providers"
	"github.com/systmms/dscreds/internal/providers/contracts"
)

// FakeKeychainClient is a test double for contracts.KeychainClient
type FakeKeychainClient struct {
	mu sync.RWMutex

	// Secrets is a map of service -> account -> value
	Secrets map[string]map[string][]byte

	// QueryErr is returned by Query() if set (overrides Secrets lookup)
	QueryErr error
}

// NewFakeKeychainClient creates a new fake keychain client with defaults
func NewFakeKeychainClient() *FakeKeychainClient {
	return &FakeKeychainClient{
		Secrets: make(map[string]map[string][]byte),
	}
}

// SetSecret adds a secret to the fake keychain
func (f *FakeKeychainClient) SetSecret(service, account string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Secrets == nil {
		f.Secrets = make(map[string]map[string][]byte)
	}
	if f.Secrets[service] == nil {
		f.Secrets[service] = make(map[string][]byte)
	}
	f.Secrets[service][account] = value
}

// Query retrieves a secret from the fake keychain
func (f *FakeKeychainClient) Query(service, account string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	if accounts, ok := f.Secrets[service]; ok {
		if value, ok := accounts[account]; ok {
			return value, nil
		}
	}
	return nil, providers.ErrKeychainItemNotFound
}

// Ensure FakeKeychainClient implements contracts.KeychainClient
var _ contracts.KeychainClient = (*FakeKeychainClient)(nil)
