package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newProvidersCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured code action providers in query order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			application, err := global.newApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				_ = application.Close(context.WithoutCancel(ctx))
			}()

			providers := application.Providers()
			if global.format == "json" {
				return writeJSON(cmd.OutOrStdout(), providers)
			}
			return writeProviders(cmd.OutOrStdout(), providers)
		},
	}
}
