package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/internal/providers"
	"github.com/systmms/dscreds/internal/resolve"
)

func NewDoctorCommand(cfg *config.Config, m *Metrics) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check provider connectivity and configuration",
		Long: `Verify that providers are properly configured and accessible.

This command checks:
- Configuration file validity
- That every provider can be constructed from its settings
- Provider authentication and connectivity, where the provider supports it`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg.Logger.Info("Checking dscreds configuration...")
			if err := cfg.Load(); err != nil {
				cfg.Logger.Error("Configuration error: %v", err)
				return err
			}
			cfg.Logger.Info("✓ Configuration loaded successfully")

			resolver := resolve.New(cfg, m.resolverOptions()...)
			defer func() { _ = resolver.Close() }()
			defer m.flush(cfg.Logger)

			results := checkProviders(context.Background(), cfg, resolver, providers.NewFactories())
			displayHealthResults(out, results)

			healthy := 0
			for _, result := range results {
				if result.Status != statusError {
					healthy++
				}
			}

			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d providers healthy\n", healthy, len(results))
			if healthy < len(results) {
				return fmt.Errorf("some providers are not healthy")
			}

			cfg.Logger.Info("✓ All systems operational!")
			return nil
		},
	}

	return cmd
}

const (
	statusHealthy   = "healthy"
	statusUnchecked = "unchecked"
	statusError     = "error"
)

// ProviderHealth represents the health status of a provider
type ProviderHealth struct {
	Name    string
	Type    string
	Status  string
	Message string
}

func checkProviders(ctx context.Context, cfg *config.Config, resolver *resolve.Resolver, factories *providers.Factories) []ProviderHealth {
	names := cfg.ProviderNames()
	results := make([]ProviderHealth, 0, len(names))

	for _, name := range names {
		pc, _ := cfg.GetProvider(name)
		health := ProviderHealth{Name: name, Type: pc.Type}

		p, err := factories.Create(name, pc)
		if err == nil {
			if err = resolver.RegisterProvider(name, p); err != nil {
				closeProvider(p)
			}
		}
		if err != nil {
			health.Status = statusError
			health.Message = firstLine(err)
			results = append(results, health)
			continue
		}

		err = resolver.ValidateProvider(ctx, name)
		switch {
		case errors.Is(err, resolve.ErrNoValidation):
			health.Status = statusUnchecked
			health.Message = "Provider has no connectivity check"
		case err != nil:
			health.Status = statusError
			health.Message = firstLine(err)
		default:
			health.Status = statusHealthy
			health.Message = "Provider is ready"
		}
		results = append(results, health)
	}
	return results
}

// displayHealthResults shows provider health in a formatted table
func displayHealthResults(out io.Writer, results []ProviderHealth) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "PROVIDER\tTYPE\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "--------\t----\t------\t-------\n")

	for _, result := range results {
		status := result.Status
		switch result.Status {
		case statusHealthy:
			status = "✓ " + status
		case statusError:
			status = "✗ " + status
		default:
			status = "? " + status
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", result.Name, result.Type, status, result.Message)
	}
	_ = w.Flush()
}

func firstLine(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
