package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newOAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oauth",
		Short: "Web authorization helpers",
	}
	cmd.AddCommand(newOAuthURLCmd())
	return cmd
}

func newOAuthURLCmd() *cobra.Command {
	var (
		redirect string
		state    string
		scope    string
	)

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL for a redirect target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Account.AppID == "" {
				return fmt.Errorf("account.appId must be configured")
			}
			if redirect == "" {
				if cfg.Gateway.PublicURL == "" {
					return fmt.Errorf("pass --redirect or set gateway.publicURL")
				}
				redirect = cfg.Gateway.PublicURL + cfg.OAuth.CallbackPath
			}
			if scope == "" {
				scope = cfg.OAuth.Scope
			}
			if state == "" {
				state = uuid.NewString()
			}

			rt, err := openRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Fprintln(cmd.OutOrStdout(), rt.oauth.AuthURL(redirect, state, scope))
			return nil
		},
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "redirect URI (default gateway.publicURL + oauth.callbackPath)")
	cmd.Flags().StringVar(&state, "state", "", "opaque state (default random)")
	cmd.Flags().StringVar(&scope, "scope", "", "snsapi_base or snsapi_userinfo (default oauth.scope)")
	return cmd
}
