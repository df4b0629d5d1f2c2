package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/internal/logging"
)

func NewResolveCommand(cfg *config.Config, m *Metrics) *cobra.Command {
	var (
		identity   string
		jsonOutput bool
		reveal     bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <provider>",
		Short: "Resolve credentials from a provider",
		Long: `Resolve the credentials a provider currently holds and print them.

Sensitive values are masked unless --reveal is set.

Examples:
  # Credentials registered under the provider's own name
  dscreds resolve local

  # One identity of a provider that holds several
  dscreds resolve db-vault --as orders

  # Raw values for scripting
  dscreds resolve db-vault --as orders --json --reveal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := loadResolver(cfg, m)
			if err != nil {
				return err
			}
			defer func() { _ = resolver.Close() }()
			defer m.flush(cfg.Logger)

			set, err := resolver.ResolveAs(context.Background(), args[0], identity)
			if err != nil {
				return err
			}

			values := map[string]string(set)
			if !reveal {
				values = logging.RedactSet(set)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(values)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "KEY\tVALUE\n")
			_, _ = fmt.Fprintf(w, "---\t-----\n")
			for _, k := range sortedKeys(values) {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", k, values[k])
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&identity, "as", "", "Identity to ask the provider for (defaults to the provider name)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print sensitive values unmasked")

	return cmd
}
