// Package resolve builds the credentials registry from dscreds.yaml.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/systmms/dscreds/internal/config"
	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/internal/logging"
	"github.com/systmms/dscreds/internal/metrics"
	"github.com/systmms/dscreds/internal/providers"
	"github.com/systmms/dscreds/pkg/credentials"
)

// ErrNoValidation is returned by ValidateProvider for providers that have
// no health check.
var ErrNoValidation = errors.New("provider does not support validation")

type registration struct {
	providerType string
	timeoutMs    int
	provider     credentials.Provider
}

// Resolver constructs providers, wraps them with a timeout and metrics,
// and registers them. It owns the providers it registers and closes them
// in Close.
type Resolver struct {
	config    *config.Config
	factories *providers.Factories
	metrics   *metrics.ResolveMetrics
	registry  *credentials.Registry
	logger    *logging.Logger

	mu      sync.RWMutex
	entries map[string]registration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFactories replaces the built-in provider factories.
func WithFactories(f *providers.Factories) Option {
	return func(r *Resolver) { r.factories = f }
}

// WithMetrics records resolutions in m.
func WithMetrics(m *metrics.ResolveMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a new resolver instance
func New(cfg *config.Config, opts ...Option) *Resolver {
	r := &Resolver{
		config:   cfg,
		registry: credentials.NewRegistry(),
		logger:   cfg.Logger,
		entries:  make(map[string]registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.factories == nil {
		r.factories = providers.NewFactories()
	}
	if r.metrics == nil {
		r.metrics = metrics.NewResolveMetrics(nil)
	}
	if r.logger == nil {
		r.logger = logging.New(false, true)
	}
	return r
}

// Registry returns the registry consumers resolve through.
func (r *Resolver) Registry() *credentials.Registry {
	return r.registry
}

// RegisterAll creates and registers every provider in the configuration.
// It stops at the first failure; providers registered before it stay
// registered and are released by Close.
func (r *Resolver) RegisterAll() error {
	for _, name := range r.config.ProviderNames() {
		pc, err := r.config.GetProvider(name)
		if err != nil {
			return err
		}

		p, err := r.factories.Create(name, pc)
		if err != nil {
			return err
		}

		if err := r.register(name, pc.Type, pc.GetProviderTimeout(), p); err != nil {
			closeProvider(p)
			return err
		}
	}
	return nil
}

// RegisterProvider registers p under name. The timeout comes from the
// provider's configuration when one exists.
func (r *Resolver) RegisterProvider(name string, p credentials.Provider) error {
	providerType := "custom"
	timeoutMs := config.DefaultTimeoutMs
	if pc, err := r.config.GetProvider(name); err == nil {
		providerType = pc.Type
		timeoutMs = pc.GetProviderTimeout()
	}
	return r.register(name, providerType, timeoutMs, p)
}

func (r *Resolver) register(name, providerType string, timeoutMs int, p credentials.Provider) error {
	wrapped := r.metrics.Wrap(name, withTimeout(providerType, timeoutMs, p))

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.registry.Register(name, wrapped); err != nil {
		return err
	}
	r.entries[name] = registration{providerType: providerType, timeoutMs: timeoutMs, provider: p}
	r.logger.Debug("Registered provider: %s (%s)", name, providerType)
	return nil
}

// ProviderType returns the configured type of a registered provider.
func (r *Resolver) ProviderType(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e.providerType, ok
}

// ResolveAs resolves identity from the provider registered as name and
// explains failures for the command line.
func (r *Resolver) ResolveAs(ctx context.Context, name, identity string) (credentials.CredentialSet, error) {
	set, err := r.registry.ResolveAs(ctx, name, identity)
	if err != nil {
		providerType, _ := r.ProviderType(name)
		return nil, dserrors.Explain(err, providerType)
	}
	return set, nil
}

// ValidateProvider validates a single provider with timeout
func (r *Resolver) ValidateProvider(ctx context.Context, providerName string) error {
	r.mu.RLock()
	e, exists := r.entries[providerName]
	r.mu.RUnlock()
	if !exists {
		return dserrors.ConfigError{
			Field:      "provider",
			Value:      providerName,
			Message:    "provider not registered",
			Suggestion: fmt.Sprintf("Check that provider '%s' is configured correctly", providerName),
		}
	}

	v, ok := e.provider.(credentials.Validator)
	if !ok {
		return ErrNoValidation
	}

	timeoutCtx, cancel := withProviderTimeout(ctx, e.timeoutMs)
	defer cancel()

	err := v.Validate(timeoutCtx)
	r.metrics.RecordValidation(providerName, err)
	if err != nil {
		// Check if it's a timeout error and enhance the message
		if errors.Is(err, context.DeadlineExceeded) {
			return isTimeoutError(err, e.providerType, e.timeoutMs)
		}
		return dserrors.ProviderError(e.providerType, "validate", err)
	}
	return nil
}

// Close releases every registered provider that holds resources.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for name, e := range r.entries {
		if c, ok := e.provider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("close provider %s: %w", name, err))
			}
		}
	}
	return result.ErrorOrNil()
}

func closeProvider(p credentials.Provider) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}
