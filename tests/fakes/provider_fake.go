package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/dscreds/pkg/credentials"
)

// FakeProvider is a manual fake implementation of credentials.Provider.
//
// It stores credential sets in memory and can be configured to return
// specific sets or errors. Every call returns a fresh copy so callers can
// observe replaced values, as with a store whose secrets rotate.
//
// Example usage:
//
//	fake := fakes.NewFakeProvider("test").
//	    WithCredentials("orders", credentials.CredentialSet{"user": "app", "password": "pw"}).
//	    WithError("billing", errors.New("connection failed"))
//
//	set, err := fake.Credentials(ctx, "orders")
type FakeProvider struct {
	name string

	sets   map[string]credentials.CredentialSet
	failOn map[string]error

	delay       time.Duration
	validateErr error
	callCount   map[string]int

	mu sync.RWMutex
}

// NewFakeProvider creates a new FakeProvider with the given name.
func NewFakeProvider(name string) *FakeProvider {
	return &FakeProvider{
		name:      name,
		sets:      make(map[string]credentials.CredentialSet),
		failOn:    make(map[string]error),
		callCount: make(map[string]int),
	}
}

// Name returns the name the fake was created with.
func (f *FakeProvider) Name() string {
	return f.name
}

// WithCredentials stores set for identity.
func (f *FakeProvider) WithCredentials(identity string, set credentials.CredentialSet) *FakeProvider {
	f.SetCredentials(identity, set)
	return f
}

// WithError makes Credentials fail for identity with err.
func (f *FakeProvider) WithError(identity string, err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failOn[identity] = err
	return f
}

// WithDelay makes every call wait for d or until the context is done.
func (f *FakeProvider) WithDelay(d time.Duration) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delay = d
	return f
}

// WithValidateError makes Validate return err.
func (f *FakeProvider) WithValidateError(err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.validateErr = err
	return f
}

// SetCredentials replaces the set for identity. Safe to call while other
// goroutines resolve.
func (f *FakeProvider) SetCredentials(identity string, set credentials.CredentialSet) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sets[identity] = set.Clone()
}

// Credentials implements credentials.Provider.
func (f *FakeProvider) Credentials(ctx context.Context, name string) (credentials.CredentialSet, error) {
	f.mu.Lock()
	f.callCount["Credentials"]++
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if err, ok := f.failOn[name]; ok {
		return nil, err
	}
	set, ok := f.sets[name]
	if !ok {
		return nil, &credentials.NotFoundError{Provider: f.name, Key: name}
	}
	return set.Clone(), nil
}

// Validate implements credentials.Validator.
func (f *FakeProvider) Validate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount["Validate"]++
	return f.validateErr
}

// CallCount returns how many times method was called.
func (f *FakeProvider) CallCount(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.callCount[method]
}

// Reset clears call counts.
func (f *FakeProvider) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount = make(map[string]int)
}

var (
	_ credentials.Provider  = (*FakeProvider)(nil)
	_ credentials.Validator = (*FakeProvider)(nil)
)
