package credentials

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ContractTest describes a provider under test for RunContractTests.
type ContractTest struct {
	// CreateProvider returns a fresh provider instance.
	CreateProvider func(t *testing.T) Provider

	// KnownIdentity is a name the provider can resolve. When empty the
	// resolve checks are skipped.
	KnownIdentity string

	// UnknownIdentity is a name the provider has no credentials for.
	// Defaults to a timestamped name that should not exist anywhere.
	UnknownIdentity string

	// SkipValidation disables the Validate check for providers that
	// implement Validator but need a live backend for it.
	SkipValidation bool
}

// RunContractTests runs the behaviour every Provider is expected to share.
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Resolve", func(t *testing.T) {
			testContractResolve(t, contract)
		})

		t.Run("ResolveIsolation", func(t *testing.T) {
			testContractIsolation(t, contract)
		})

		t.Run("ResolveUnknown", func(t *testing.T) {
			testContractUnknown(t, contract)
		})

		if !contract.SkipValidation {
			t.Run("Validate", func(t *testing.T) {
				testContractValidate(t, contract)
			})
		}
	})
}

func testContractResolve(t *testing.T, contract ContractTest) {
	if contract.KnownIdentity == "" {
		t.Skip("KnownIdentity not provided, skipping resolve test")
	}

	p := contract.CreateProvider(t)
	creds, err := p.Credentials(context.Background(), contract.KnownIdentity)
	if err != nil {
		t.Fatalf("Credentials(%q) failed: %v", contract.KnownIdentity, err)
	}
	if len(creds) == 0 {
		t.Errorf("Credentials(%q) returned an empty set", contract.KnownIdentity)
	}
}

// Mutating a returned set must not leak into the next call.
func testContractIsolation(t *testing.T, contract ContractTest) {
	if contract.KnownIdentity == "" {
		t.Skip("KnownIdentity not provided, skipping isolation test")
	}

	p := contract.CreateProvider(t)
	ctx := context.Background()

	first, err := p.Credentials(ctx, contract.KnownIdentity)
	if err != nil {
		t.Fatalf("Credentials(%q) failed: %v", contract.KnownIdentity, err)
	}
	want := first.Password()
	first[PasswordKey] = "tampered-" + want

	second, err := p.Credentials(ctx, contract.KnownIdentity)
	if err != nil {
		t.Fatalf("second Credentials(%q) failed: %v", contract.KnownIdentity, err)
	}
	if second.Password() != want {
		t.Errorf("provider returned shared storage: password became %q", second.Password())
	}
}

func testContractUnknown(t *testing.T, contract ContractTest) {
	identity := contract.UnknownIdentity
	if identity == "" {
		identity = "credentials-that-do-not-exist-" + time.Now().Format("20060102150405")
	}

	p := contract.CreateProvider(t)
	creds, err := p.Credentials(context.Background(), identity)
	if err == nil {
		t.Fatalf("Credentials(%q) should fail, got %d keys", identity, len(creds))
	}

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Logf("provider returned error (not NotFoundError): %v", err)
	}
}

func testContractValidate(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)
	v, ok := p.(Validator)
	if !ok {
		t.Skip("provider does not implement Validator")
	}

	done := make(chan error, 1)
	go func() {
		done <- v.Validate(context.Background())
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Logf("Validate failed (expected without a backend): %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Validate() timed out after 5 seconds")
	}
}
