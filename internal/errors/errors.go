package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/dscreds/pkg/credentials"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ProviderError enhances provider-specific errors with context
func ProviderError(providerType string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s provider error during %s", providerType, operation),
		Details:    err.Error(),
		Suggestion: getProviderSuggestion(providerType, err),
		Err:        err,
	}
}

// Explain turns a registry error into a UserError naming the provider and
// a likely fix. Errors it does not recognise are returned unchanged.
func Explain(err error, providerType string) error {
	if err == nil {
		return nil
	}

	var unknown *credentials.UnknownProviderError
	if errors.As(err, &unknown) {
		return UserError{
			Message:    fmt.Sprintf("Credentials provider '%s' is not configured", unknown.Name),
			Suggestion: "Add it under 'providers:' in dscreds.yaml or fix the consumer's credentials-provider setting",
			Err:        err,
		}
	}

	var dup *credentials.DuplicateNameError
	if errors.As(err, &dup) {
		return UserError{
			Message:    fmt.Sprintf("Credentials provider '%s' is registered twice", dup.Name),
			Suggestion: "Provider names must be unique within a process",
			Err:        err,
		}
	}

	var lookup *credentials.ProviderLookupError
	if errors.As(err, &lookup) {
		return UserError{
			Message:    fmt.Sprintf("Failed to resolve credentials from provider '%s'", lookup.Name),
			Details:    lookup.Err.Error(),
			Suggestion: getProviderSuggestion(providerType, lookup.Err),
			Err:        err,
		}
	}

	return err
}

// getProviderSuggestion returns helpful suggestions based on provider type and error
func getProviderSuggestion(providerType string, err error) string {
	var notFound *credentials.NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("Verify that '%s' exists in the backing store, or set an explicit 'secrets:' mapping", notFound.Key)
	}

	errStr := err.Error()

	switch providerType {
	case "aws.secretsmanager", "aws.ssm", "aws.sts":
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for the secret or role"
		}
		if strings.Contains(errStr, "credentials") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		if strings.Contains(errStr, "ThrottlingException") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}

	case "vault":
		if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "403") {
			return "Check that the Vault token's policy allows reading this path"
		}
		if strings.Contains(errStr, "no vault token") {
			return "Set VAULT_TOKEN or configure an auth_method"
		}

	case "gcp.secretmanager":
		if strings.Contains(errStr, "PermissionDenied") {
			return "Grant roles/secretmanager.secretAccessor to the service account"
		}

	case "azure.keyvault":
		if strings.Contains(errStr, "Forbidden") {
			return "Check the Key Vault access policy for the identity in use"
		}

	case "keychain":
		if strings.Contains(errStr, "secret service") || strings.Contains(errStr, "dbus") {
			return "Start a Secret Service implementation (gnome-keyring, KWallet) or use another provider"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "deadline exceeded") || strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check connectivity or raise timeout_ms for this provider"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and provider configuration"
	}

	return ""
}
