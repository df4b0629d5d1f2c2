package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/dscreds/cmd/dscreds/commands"
	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	// Create config placeholder
	cfg := &config.Config{}
	m := &commands.Metrics{}

	rootCmd := &cobra.Command{
		Use:   "dscreds",
		Short: "Resolve datastore credentials from pluggable providers",
		Long: `dscreds resolves named credentials (user, password and driver properties)
from Vault, cloud secret managers, the OS keychain and other providers, and
hands them to datastore connections.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "dscreds.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&m.File, "metrics-file", "", "Write Prometheus metrics for this run to a file")

	rootCmd.AddCommand(
		commands.NewResolveCommand(cfg, m),
		commands.NewProvidersCommand(cfg),
		commands.NewDoctorCommand(cfg, m),
		commands.NewConnectCommand(cfg, m),
	)

	return rootCmd.Execute()
}
