package providers

import (
	"errors"
	"fmt"

	"github.com/systmms/dscreds/pkg/credentials"
)

// KeychainError wraps OS keychain errors with context
type KeychainError struct {
	Op      string // Operation: "query", "validate"
	Service string
	Account string
	Err     error
}

func (e *KeychainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keychain %s error for %s/%s: %v", e.Op, e.Service, e.Account, e.Err)
	}
	return fmt.Sprintf("keychain %s error for %s/%s", e.Op, e.Service, e.Account)
}

func (e *KeychainError) Unwrap() error {
	return e.Err
}

// Keychain sentinel errors
var (
	ErrKeychainItemNotFound = errors.New("keychain item not found")
	ErrKeychainAccessDenied = errors.New("keychain access denied")
)

// AkeylessError wraps Akeyless SDK errors with context
type AkeylessError struct {
	Op      string // Operation: "auth", "fetch"
	Path    string
	Message string
	Err     error
}

func (e *AkeylessError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("akeyless %s error for %s: %s", e.Op, e.Path, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("akeyless %s error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("akeyless %s error: %s", e.Op, e.Message)
}

func (e *AkeylessError) Unwrap() error {
	return e.Err
}

// Akeyless sentinel errors
var (
	ErrAkeylessSecretNotFound = errors.New("akeyless secret not found")
)

// ToNotFoundError converts a provider-specific miss to the standard NotFoundError
func ToNotFoundError(providerName, key string) *credentials.NotFoundError {
	return &credentials.NotFoundError{
		Provider: providerName,
		Key:      key,
	}
}

// ToAuthError converts provider-specific errors to the standard AuthError
func ToAuthError(providerName string, err error) *credentials.AuthError {
	return &credentials.AuthError{
		Provider: providerName,
		Message:  err.Error(),
	}
}
