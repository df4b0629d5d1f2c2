package commands

import (
	"io"
	"sort"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/internal/resolve"
	"github.com/systmms/dscreds/pkg/credentials"
)

// loadResolver loads the configuration and registers its providers. The
// caller closes the returned resolver.
func loadResolver(cfg *config.Config, m *Metrics) (*resolve.Resolver, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}

	resolver := resolve.New(cfg, m.resolverOptions()...)
	if err := resolver.RegisterAll(); err != nil {
		_ = resolver.Close()
		return nil, err
	}
	return resolver, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func closeProvider(p credentials.Provider) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}
