package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/dscreds/internal/errors"
)

func TestIsTimeoutError(t *testing.T) {
	t.Parallel()

	other := errors.New("boom")
	assert.Equal(t, other, isTimeoutError(other, "vault", 1000))

	err := isTimeoutError(fmt.Errorf("read secret: %w", context.DeadlineExceeded), "vault", 2000)
	var userErr dserrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "Provider operation timed out", userErr.Message)
	assert.Equal(t, "Operation exceeded 2000ms timeout", userErr.Details)
	assert.Contains(t, userErr.Suggestion, "timeout_ms to 10000")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetTimeoutSuggestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		providerType string
		timeoutMs    int
		want         string
	}{
		{"aws.ssm", 1000, "AWS API can be slow"},
		{"aws.sts", 30000, "Verify region"},
		{"gcp.secretmanager", 30000, "Google Cloud connectivity"},
		{"azure.keyvault", 2000, "Azure API can be slow"},
		{"vault", 30000, "VAULT_ADDR"},
		{"akeyless", 30000, "access_id"},
		{"keychain", 1000, "unlock"},
		{"static", 5000, "Try increasing timeout_ms"},
		{"custom", 30000, "Check network connectivity"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("%s_%d", tt.providerType, tt.timeoutMs), func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, getTimeoutSuggestion(tt.providerType, tt.timeoutMs), tt.want)
		})
	}
}
