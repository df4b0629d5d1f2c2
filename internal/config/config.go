package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/dscreds/internal/errors"
	"github.com/systmms/dscreds/internal/logging"
)

// DefaultTimeoutMs applies to providers without timeout_ms.
const DefaultTimeoutMs = 30000

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the dscreds.yaml structure
type Definition struct {
	Version   int                       `yaml:"version"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Consumers map[string]ConsumerConfig `yaml:"consumers,omitempty"`
}

// ProviderConfig declares one credentials provider. Everything besides
// type and timeout_ms is handed to the provider factory unchanged.
type ProviderConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline"`
}

// ConsumerConfig declares a datastore connection that authenticates with
// credentials from a provider, or with static user/password when no
// credentials-provider is set.
type ConsumerConfig struct {
	Kind                    string            `yaml:"kind"`
	CredentialsProvider     string            `yaml:"credentials-provider,omitempty"`
	CredentialsProviderName string            `yaml:"credentials-provider-name,omitempty"`
	Host                    string            `yaml:"host,omitempty"`
	Port                    int               `yaml:"port,omitempty"`
	Database                string            `yaml:"database,omitempty"`
	User                    string            `yaml:"user,omitempty"`
	Password                string            `yaml:"password,omitempty"`
	Options                 map[string]string `yaml:"options,omitempty"`
	// Forward names credential keys passed to the driver on top of the
	// connection parameters it already knows.
	Forward                 []string          `yaml:"forward,omitempty"`
}

// UsesProvider reports whether credentials come from a provider rather
// than from static user/password settings.
func (c ConsumerConfig) UsesProvider() bool {
	return c.CredentialsProvider != ""
}

// Identity returns the name the consumer asks its provider for.
func (c ConsumerConfig) Identity() string {
	if c.CredentialsProviderName != "" {
		return c.CredentialsProviderName
	}
	return c.CredentialsProvider
}

// Load reads and parses the configuration file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create dscreds.yaml or pass --config <path>",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}

	c.Definition = def
	if c.Logger != nil {
		c.Logger.Debug("Loaded %d provider(s) and %d consumer(s) from %s", len(def.Providers), len(def.Consumers), c.Path)
	}
	return nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    fmt.Sprintf("failed to decode configuration: %v", err),
			Suggestion: "Check value types against the documented configuration format",
		}
	}

	if err := def.validateReferences(); err != nil {
		return nil, err
	}
	return &def, nil
}

func validateSchema(doc interface{}) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var messages []string
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	sort.Strings(messages)
	return dserrors.ConfigError{
		Message:    "schema validation failed:\n  - " + strings.Join(messages, "\n  - "),
		Suggestion: "Every provider needs a 'type'; consumers need a 'kind' of postgres or mysql",
	}
}

// validateReferences checks what the schema cannot: consumers pointing at
// providers that exist.
func (d *Definition) validateReferences() error {
	for _, name := range sortedKeys(d.Consumers) {
		consumer := d.Consumers[name]
		if consumer.CredentialsProviderName != "" && consumer.CredentialsProvider == "" {
			return dserrors.ConfigError{
				Field:      fmt.Sprintf("consumers.%s.credentials-provider-name", name),
				Value:      consumer.CredentialsProviderName,
				Message:    "credentials-provider-name requires credentials-provider",
				Suggestion: "Set credentials-provider to the provider that holds this identity",
			}
		}
		if consumer.UsesProvider() {
			if _, ok := d.Providers[consumer.CredentialsProvider]; !ok {
				return dserrors.ConfigError{
					Field:      fmt.Sprintf("consumers.%s.credentials-provider", name),
					Value:      consumer.CredentialsProvider,
					Message:    "references a provider that is not configured",
					Suggestion: availableSuggestion("Available providers", sortedKeys(d.Providers)),
				}
			}
		}
	}
	return nil
}

// GetProvider returns the configuration for a provider
func (c *Config) GetProvider(name string) (ProviderConfig, error) {
	if c.Definition == nil {
		return ProviderConfig{}, errNotLoaded()
	}

	if p, ok := c.Definition.Providers[name]; ok {
		return p, nil
	}

	return ProviderConfig{}, dserrors.ConfigError{
		Field:      "provider",
		Value:      name,
		Message:    "provider not found in configuration",
		Suggestion: availableSuggestion("Available providers", c.ProviderNames()),
	}
}

// GetConsumer returns the configuration for a consumer
func (c *Config) GetConsumer(name string) (ConsumerConfig, error) {
	if c.Definition == nil {
		return ConsumerConfig{}, errNotLoaded()
	}

	if consumer, ok := c.Definition.Consumers[name]; ok {
		return consumer, nil
	}

	return ConsumerConfig{}, dserrors.ConfigError{
		Field:      "consumer",
		Value:      name,
		Message:    "consumer not found in configuration",
		Suggestion: availableSuggestion("Available consumers", sortedKeys(c.Definition.Consumers)),
	}
}

// ProviderNames returns configured provider names in lexical order.
func (c *Config) ProviderNames() []string {
	if c.Definition == nil {
		return nil
	}
	return sortedKeys(c.Definition.Providers)
}

// GetProviderTimeout returns the timeout for a provider in milliseconds
func (p ProviderConfig) GetProviderTimeout() int {
	if p.TimeoutMs <= 0 {
		return DefaultTimeoutMs
	}
	return p.TimeoutMs
}

func errNotLoaded() error {
	return dserrors.UserError{
		Message:    "Configuration not loaded",
		Suggestion: "This is an internal error. Please report it",
	}
}

func availableSuggestion(label string, names []string) string {
	if len(names) == 0 {
		return "Add it to the configuration file"
	}
	return fmt.Sprintf("%s: %s", label, strings.Join(names, ", "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
