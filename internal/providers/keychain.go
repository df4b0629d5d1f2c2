package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/systmms/dscreds/internal/providers/contracts"
	"github.com/systmms/dscreds/pkg/credentials"
)

// DefaultKeychainService is the keychain service used when none is configured.
const DefaultKeychainService = "dscreds"

// KeychainProvider reads credentials from the OS keychain (macOS Keychain,
// Linux Secret Service, Windows Credential Manager).
//
// The keychain item for an identity is found under service/account, where
// account is accounts[identity] or the identity itself. The item holds a
// JSON document or a bare password; a bare password is paired with
// users[identity] or the provider-wide user.
type KeychainProvider struct {
	name     string
	service  string
	user     string
	users    map[string]string
	accounts map[string]string
	client   contracts.KeychainClient
}

// NewKeychainProvider creates a keychain provider backed by go-keyring
func NewKeychainProvider(name string, config map[string]interface{}) *KeychainProvider {
	return NewKeychainProviderWithClient(name, config, keyringClient{})
}

// NewKeychainProviderWithClient creates a keychain provider with a custom client.
// This is primarily for testing, allowing the keychain client to be mocked.
func NewKeychainProviderWithClient(name string, config map[string]interface{}, client contracts.KeychainClient) *KeychainProvider {
	kc := &KeychainProvider{
		name:     name,
		service:  getString(config, "service"),
		user:     getString(config, "user"),
		users:    getStringMap(config, "users"),
		accounts: getStringMap(config, "accounts"),
		client:   client,
	}
	if kc.service == "" {
		kc.service = DefaultKeychainService
	}
	return kc
}

// Credentials reads the keychain item for name.
func (kc *KeychainProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	account := name
	if mapped, ok := kc.accounts[name]; ok && mapped != "" {
		account = mapped
	}

	value, err := kc.client.Query(kc.service, account)
	if err != nil {
		if isKeychainNotFoundError(err) {
			return nil, ToNotFoundError(kc.name, kc.service+"/"+account)
		}
		if isKeychainAccessDeniedError(err) {
			return nil, &KeychainError{Op: "query", Service: kc.service, Account: account, Err: ErrKeychainAccessDenied}
		}
		return nil, &KeychainError{Op: "query", Service: kc.service, Account: account, Err: err}
	}

	set, err := parseSecretDocument(string(value))
	if err != nil {
		return nil, &KeychainError{Op: "query", Service: kc.service, Account: account, Err: err}
	}
	if _, ok := set[credentials.UserKey]; !ok {
		if user, ok := kc.users[name]; ok {
			set[credentials.UserKey] = user
		} else if kc.user != "" {
			set[credentials.UserKey] = kc.user
		}
	}
	return set, nil
}

// isKeychainNotFoundError checks if an error indicates item not found
func isKeychainNotFoundError(err error) bool {
	if errors.Is(err, ErrKeychainItemNotFound) || errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "itemNotFound")
}

// isKeychainAccessDeniedError checks if an error indicates access was denied
func isKeychainAccessDeniedError(err error) bool {
	if errors.Is(err, ErrKeychainAccessDenied) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "accessDenied")
}

// keyringClient implements KeychainClient with go-keyring.
type keyringClient struct{}

func (keyringClient) Query(service, account string) ([]byte, error) {
	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrKeychainItemNotFound
		}
		return nil, err
	}
	return []byte(secret), nil
}

var _ contracts.KeychainClient = keyringClient{}
