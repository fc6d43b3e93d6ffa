package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the account's access token, fetching one if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := requireApp(cfg); err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			if refresh {
				if err := rt.tokens.Invalidate(ctx); err != nil {
					return fmt.Errorf("invalidating cached token: %w", err)
				}
			}
			c, err := rt.tokens.Credential(ctx)
			if err != nil {
				return fmt.Errorf("fetching access token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Value)
			log.Info().
				Str("expires_at", c.ExpiresAt.Format(time.RFC3339)).
				Str("state", rt.tokens.State(ctx).String()).
				Msg("access token")
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "discard the cached token and fetch a new one")
	return cmd
}
