package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/oagate/internal/signature"
	"github.com/spf13/cobra"
)

// newSignCmd prints a signed query string for exercising a deployed
// webhook by hand, e.g. with curl.
func newSignCmd() *cobra.Command {
	var (
		token     string
		timestamp string
		nonce     string
		echostr   string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print a signed webhook query string",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				token = cfg.Account.Token
			}
			if token == "" {
				return fmt.Errorf("no token: pass --token or set account.token")
			}
			if timestamp == "" {
				timestamp = strconv.FormatInt(time.Now().Unix(), 10)
			}
			if nonce == "" {
				nonce = uuid.NewString()[:8]
			}

			q := fmt.Sprintf("signature=%s&timestamp=%s&nonce=%s",
				signature.Sign(token, timestamp, nonce), timestamp, nonce)
			if echostr != "" {
				q += "&echostr=" + echostr
			}
			fmt.Fprintln(cmd.OutOrStdout(), q)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "verification token (default account.token)")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "timestamp (default now)")
	cmd.Flags().StringVar(&nonce, "nonce", "", "nonce (default random)")
	cmd.Flags().StringVar(&echostr, "echostr", "", "append an echostr for a handshake request")
	return cmd
}
