package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/pkg/credentials"
)

// withProviderTimeout creates a context with timeout for provider operations
func withProviderTimeout(ctx context.Context, timeoutMs int) (context.Context, context.CancelFunc) {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	return context.WithTimeout(ctx, timeout)
}

// isTimeoutError checks if an error is a timeout error and wraps it with helpful context
func isTimeoutError(err error, providerType string, timeoutMs int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dserrors.UserError{
			Message:    "Provider operation timed out",
			Details:    fmt.Sprintf("Operation exceeded %dms timeout", timeoutMs),
			Suggestion: getTimeoutSuggestion(providerType, timeoutMs),
			Err:        err,
		}
	}
	return err
}

// getTimeoutSuggestion provides helpful suggestions for timeout errors
func getTimeoutSuggestion(providerType string, timeoutMs int) string {
	timeoutSec := timeoutMs / 1000

	switch providerType {
	case "aws.secretsmanager", "aws.ssm", "aws.sts":
		if timeoutSec < 5 {
			return "AWS API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check AWS connectivity and credentials. Verify region is correct"

	case "gcp.secretmanager":
		if timeoutSec < 5 {
			return "Google Cloud API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check Google Cloud connectivity and authentication"

	case "azure.keyvault":
		if timeoutSec < 5 {
			return "Azure API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check Azure connectivity and authentication"

	case "vault":
		if timeoutSec < 5 {
			return "Vault API can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check Vault connectivity and authentication. Verify VAULT_ADDR"

	case "akeyless":
		if timeoutSec < 5 {
			return "Akeyless authentication can be slow. Try increasing timeout_ms to 10000"
		}
		return "Check connectivity to the Akeyless gateway and the configured access_id"

	case "keychain":
		return "The OS keychain may be waiting for an unlock prompt. Unlock it and retry"
	}

	// Generic suggestions
	if timeoutSec < 10 {
		return "Provider operation timed out. Try increasing timeout_ms in your provider configuration"
	}
	return "Check network connectivity and provider authentication. Consider increasing timeout_ms if provider is consistently slow"
}

// timeoutProvider bounds every call to next by timeoutMs.
type timeoutProvider struct {
	providerType string
	timeoutMs    int
	next         credentials.Provider
}

func withTimeout(providerType string, timeoutMs int, next credentials.Provider) credentials.Provider {
	return &timeoutProvider{providerType: providerType, timeoutMs: timeoutMs, next: next}
}

func (t *timeoutProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	timeoutCtx, cancel := withProviderTimeout(ctx, t.timeoutMs)
	defer cancel()

	set, err := t.next.Credentials(timeoutCtx, name)
	if err != nil {
		// A deadline set by the caller is reported as is.
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, isTimeoutError(err, t.providerType, t.timeoutMs)
	}
	return set, nil
}

func (t *timeoutProvider) Validate(ctx context.Context) error {
	v, ok := t.next.(credentials.Validator)
	if !ok {
		return nil
	}
	return v.Validate(ctx)
}

func (t *timeoutProvider) Unwrap() credentials.Provider {
	return t.next
}
