package cli

import (
	"fmt"
	"os"

	"github.com/soyeahso/oagate/internal/config"
	"github.com/soyeahso/oagate/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show oagate status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "oagate %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Cache:   %s\n", paths.Cache)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Gateway: port=%d bind=%s tls=%v\n", cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.TLS.Enabled)
			fmt.Fprintf(out, "Webhook: path=%s namespace=%s\n", cfg.Webhook.Path, cfg.Webhook.Namespace)
			fmt.Fprintf(out, "Account: platform=%s app=%s\n", cfg.Account.Platform, orNone(cfg.Account.AppID))
			if cfg.OAuth.Enabled {
				fmt.Fprintf(out, "OAuth:   callback=%s scope=%s\n", cfg.OAuth.CallbackPath, cfg.OAuth.Scope)
			} else {
				fmt.Fprintln(out, "OAuth:   (disabled)")
			}
			fmt.Fprintf(out, "Cache:   backend=%s skew=%s\n", cfg.Cache.Backend, cfg.Cache.Skew)
			if cfg.Events.Enabled {
				fmt.Fprintf(out, "Events:  exchange=%s prefix=%s\n", cfg.Events.Exchange, cfg.Events.Prefix)
			} else {
				fmt.Fprintln(out, "Events:  (disabled)")
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
				return nil
			}

			rt, err := openRuntime(cmd.Context(), cfg, log)
			if err != nil {
				fmt.Fprintf(out, "\nStores:  error opening: %v\n", err)
				return nil
			}
			defer rt.Close()

			fmt.Fprintf(out, "\nToken:   %s\n", rt.tokens.State(cmd.Context()))
			n, err := rt.subscribers.CountActive(cmd.Context(), accountID(cfg))
			if err != nil {
				fmt.Fprintf(out, "Subscribers: error: %v\n", err)
			} else {
				fmt.Fprintf(out, "Subscribers: %d active\n", n)
			}
			return nil
		},
	}

	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
