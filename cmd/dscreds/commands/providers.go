package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/internal/providers"
)

func NewProvidersCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List available providers",
		Long: `Display the built-in provider types and the providers configured in
dscreds.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			factories := providers.NewFactories()
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintln(out, "Built-in Provider Types:")
			_, _ = fmt.Fprintln(out, "=======================")

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "TYPE\tDESCRIPTION\n")
			_, _ = fmt.Fprintf(w, "----\t-----------\n")
			for _, providerType := range factories.SupportedTypes() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", providerType, getProviderDescription(providerType))
			}
			_ = w.Flush()

			// Show configured providers if config is available
			if err := cfg.Load(); err != nil {
				cfg.Logger.Debug("No configuration loaded: %v", err)
				return nil
			}

			_, _ = fmt.Fprintln(out, "\nConfigured Providers:")
			_, _ = fmt.Fprintln(out, "====================")

			names := cfg.ProviderNames()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(out, "No providers configured")
				return nil
			}

			w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "NAME\tTYPE\tSTATUS\n")
			_, _ = fmt.Fprintf(w, "----\t----\t------\n")
			for _, name := range names {
				pc, _ := cfg.GetProvider(name)
				status := "configured"
				if !factories.IsSupported(pc.Type) {
					status = "unsupported"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, pc.Type, status)
			}
			return w.Flush()
		},
	}

	return cmd
}

// getProviderDescription returns a description for a provider type
func getProviderDescription(providerType string) string {
	descriptions := map[string]string{
		"static":             "Credentials declared in configuration, sealed in memory",
		"env":                "Environment variables (<PREFIX>_USER, <PREFIX>_PASSWORD)",
		"aws.secretsmanager": "AWS Secrets Manager via SDK",
		"aws.ssm":            "AWS Systems Manager Parameter Store",
		"aws.sts":            "AWS STS for temporary credentials",
		"gcp.secretmanager":  "Google Cloud Secret Manager",
		"azure.keyvault":     "Azure Key Vault",
		"vault":              "HashiCorp Vault (KV v1/v2 and dynamic database credentials)",
		"akeyless":           "Akeyless secret management",
		"keychain":           "OS native keychain (macOS Keychain, Linux Secret Service)",
	}

	if desc, exists := descriptions[providerType]; exists {
		return desc
	}
	return "No description available"
}
