package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/dscreds/internal/config"
	"github.com/systmms/dscreds/internal/consumer"
)

const connectTimeout = 30 * time.Second

func NewConnectCommand(cfg *config.Config, m *Metrics) *cobra.Command {
	return newConnectCommand(cfg, m, consumer.OpenDriver)
}

func newConnectCommand(cfg *config.Config, m *Metrics, open consumer.OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <consumer>",
		Short: "Open and ping a configured datastore",
		Long: `Resolve the consumer's credentials, open a connection with them and ping
the datastore.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := loadResolver(cfg, m)
			if err != nil {
				return err
			}
			defer func() { _ = resolver.Close() }()
			defer m.flush(cfg.Logger)

			cc, err := cfg.GetConsumer(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()

			db, err := consumer.OpenWith(ctx, resolver, cc, open)
			if err != nil {
				return err
			}
			_ = db.Close()

			source := "static credentials"
			if cc.UsesProvider() {
				source = fmt.Sprintf("provider %s (identity %s)", cc.CredentialsProvider, cc.Identity())
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Connected to %s (%s) using %s\n", args[0], cc.Kind, source)
			return nil
		},
	}

	return cmd
}
