package credentials_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/dscreds/pkg/credentials"
)

func staticProvider(set credentials.CredentialSet) credentials.Provider {
	return credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
		return set, nil
	})
}

func TestRegistryResolveReflectsLiveValues(t *testing.T) {
	t.Parallel()

	var calls int32
	rotating := credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
		n := atomic.AddInt32(&calls, 1)
		return credentials.CredentialSet{
			credentials.UserKey:     "app",
			credentials.PasswordKey: fmt.Sprintf("generation-%d", n),
		}, nil
	})

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("db", rotating))

	first, err := reg.Resolve(context.Background(), "db")
	require.NoError(t, err)
	second, err := reg.Resolve(context.Background(), "db")
	require.NoError(t, err)

	assert.Equal(t, "generation-1", first.Password())
	assert.Equal(t, "generation-2", second.Password())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "every Resolve must reach the provider")
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()

	reg := credentials.NewRegistry()
	creds, err := reg.Resolve(context.Background(), "unknown")

	require.Error(t, err)
	assert.Nil(t, creds)

	var unknown *credentials.UnknownProviderError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "unknown", unknown.Name)
	assert.Contains(t, err.Error(), `"unknown"`)
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	t.Parallel()

	reg := credentials.NewRegistry()
	original := staticProvider(credentials.CredentialSet{credentials.UserKey: "first"})
	replacement := staticProvider(credentials.CredentialSet{credentials.UserKey: "second"})

	require.NoError(t, reg.Register("db", original))
	err := reg.Register("db", replacement)

	var dup *credentials.DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "db", dup.Name)

	// The first registration wins.
	creds, err := reg.Resolve(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, "first", creds.User())
}

func TestRegistryRegisterInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		providerName string
		provider     credentials.Provider
		errContains  string
	}{
		{
			name:         "empty name",
			providerName: "",
			provider:     staticProvider(nil),
			errContains:  "must not be empty",
		},
		{
			name:         "nil provider",
			providerName: "db",
			provider:     nil,
			errContains:  "is nil",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := credentials.NewRegistry()
			err := reg.Register(tt.providerName, tt.provider)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
			assert.Empty(t, reg.Names())
		})
	}
}

func TestRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	t.Parallel()

	reg := credentials.NewRegistry()
	reg.MustRegister("db", staticProvider(nil))

	assert.Panics(t, func() {
		reg.MustRegister("db", staticProvider(nil))
	})
}

func TestRegistryRoundTripsExtraKeys(t *testing.T) {
	t.Parallel()

	want := credentials.CredentialSet{
		credentials.UserKey:     "a",
		credentials.PasswordKey: "b",
		"extra":                 "c",
	}

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("db", staticProvider(want)))

	got, err := reg.Resolve(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, map[string]string{"extra": "c"}, got.Extras())
}

func TestRegistryResolveReturnsPrivateCopy(t *testing.T) {
	t.Parallel()

	backing := credentials.CredentialSet{credentials.UserKey: "app", credentials.PasswordKey: "s3cret"}
	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("db", staticProvider(backing)))

	got, err := reg.Resolve(context.Background(), "db")
	require.NoError(t, err)
	got[credentials.PasswordKey] = "changed"

	assert.Equal(t, "s3cret", backing.Password())
}

func TestRegistryProviderErrorIsWrapped(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp 10.0.0.7:8200: connection refused")
	failing := credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
		return nil, cause
	})

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("vault", failing))

	_, err := reg.Resolve(context.Background(), "vault")
	require.Error(t, err)

	var lookup *credentials.ProviderLookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "vault", lookup.Name)
	assert.Same(t, cause, lookup.Err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `"vault"`)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRegistryProviderTypedErrorSurvivesWrapping(t *testing.T) {
	t.Parallel()

	failing := credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
		return nil, &credentials.NotFoundError{Provider: "vault", Key: "secret/data/" + name}
	})

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("vault", failing))

	_, err := reg.Resolve(context.Background(), "vault")

	var notFound *credentials.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "secret/data/vault", notFound.Key)
}

func TestRegistryResolveAsPassesIdentity(t *testing.T) {
	t.Parallel()

	var seen []string
	var mu sync.Mutex
	recording := credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
		mu.Lock()
		seen = append(seen, name)
		mu.Unlock()
		return credentials.CredentialSet{credentials.UserKey: name}, nil
	})

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("shared-vault", recording))

	creds, err := reg.ResolveAs(context.Background(), "shared-vault", "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", creds.User())

	creds, err = reg.ResolveAs(context.Background(), "shared-vault", "")
	require.NoError(t, err)
	assert.Equal(t, "shared-vault", creds.User())

	assert.Equal(t, []string{"orders", "shared-vault"}, seen)
}

func TestRegistryResolveAsErrorNamesIdentity(t *testing.T) {
	t.Parallel()

	failing := credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
		return nil, errors.New("permission denied")
	})

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("shared-vault", failing))

	_, err := reg.ResolveAs(context.Background(), "shared-vault", "orders")

	var lookup *credentials.ProviderLookupError
	require.ErrorAs(t, err, &lookup)
	assert.Equal(t, "orders", lookup.Identity)
	assert.Contains(t, err.Error(), `"shared-vault"`)
	assert.Contains(t, err.Error(), `"orders"`)
}

func TestRegistryNamesAndLookup(t *testing.T) {
	t.Parallel()

	reg := credentials.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(name, staticProvider(nil)))
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())

	p, ok := reg.Lookup("mid")
	assert.True(t, ok)
	assert.NotNil(t, p)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryNilSetBecomesEmpty(t *testing.T) {
	t.Parallel()

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("empty", staticProvider(nil)))

	creds, err := reg.Resolve(context.Background(), "empty")
	require.NoError(t, err)
	assert.NotNil(t, creds)
	assert.Empty(t, creds)
}

func TestRegistryPassesContextThrough(t *testing.T) {
	t.Parallel()

	blocking := credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("slow", blocking))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := reg.Resolve(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestRegistryConcurrentResolve verifies parallel resolutions each see one
// complete set produced by a single provider invocation.
func TestRegistryConcurrentResolve(t *testing.T) {
	t.Parallel()

	var generation int64
	rotating := credentials.ProviderFunc(func(ctx context.Context, name string) (credentials.CredentialSet, error) {
		n := atomic.AddInt64(&generation, 1)
		tag := fmt.Sprintf("%d", n)
		return credentials.CredentialSet{
			credentials.UserKey:     "user-" + tag,
			credentials.PasswordKey: "password-" + tag,
			"generation":            tag,
		}, nil
	})

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("db", rotating))

	const numGoroutines = 100
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan credentials.CredentialSet, numGoroutines)
	errs := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			creds, err := reg.Resolve(context.Background(), "db")
			if err != nil {
				errs <- err
				return
			}
			results <- creds
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for concurrent resolutions")
	}

	close(results)
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	count := 0
	for creds := range results {
		count++
		tag := creds["generation"]
		assert.Equal(t, "user-"+tag, creds.User(), "user from a different invocation")
		assert.Equal(t, "password-"+tag, creds.Password(), "password from a different invocation")
		assert.False(t, seen[tag], "generation %s observed twice", tag)
		seen[tag] = true
	}
	assert.Equal(t, numGoroutines, count)
}

func TestRegistryConcurrentRegisterAndResolve(t *testing.T) {
	t.Parallel()

	reg := credentials.NewRegistry()
	require.NoError(t, reg.Register("stable", staticProvider(credentials.CredentialSet{credentials.UserKey: "u"})))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = reg.Register(fmt.Sprintf("p-%d", i), staticProvider(nil))
		}(i)
		go func() {
			defer wg.Done()
			creds, err := reg.Resolve(context.Background(), "stable")
			assert.NoError(t, err)
			assert.Equal(t, "u", creds.User())
		}()
	}
	wg.Wait()

	assert.Len(t, reg.Names(), 51)
}
