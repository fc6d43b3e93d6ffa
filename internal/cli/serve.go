package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/soyeahso/oagate/internal/config"
	"github.com/soyeahso/oagate/internal/events"
	"github.com/soyeahso/oagate/internal/gateway"
	"github.com/soyeahso/oagate/internal/handlers"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/plugin"
	"github.com/soyeahso/oagate/internal/router"
	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"
)

func newServeCmd() *cobra.Command {
	var (
		port        int
		bind        string
		force       bool
		autoRestart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			logger, logCloser, err := logging.NewFromOptions(logging.Options{
				Level:        cfg.Logging.Level,
				ConsoleStyle: cfg.Logging.ConsoleStyle,
				File:         cfg.Logging.File,
			}, os.Stderr)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer logCloser.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !force {
				if err := paths.EnsureDirs(); err != nil {
					return err
				}
				lock := flock.New(filepath.Join(paths.Data, "serve.lock"))
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquiring instance lock: %w", err)
				}
				if !ok {
					return fmt.Errorf("another oagate instance is running (use --force to override)")
				}
				defer lock.Unlock()
			}

			rt, err := openRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			h, err := buildHandlers(rt)
			if err != nil {
				return err
			}

			plugins := plugin.NewRegistry(rt.hooks, logger)
			if cfg.Events.Enabled {
				if err := plugins.Register(events.NewPlugin(events.PluginOptions{
					URL:      cfg.Events.AMQPURL,
					Exchange: cfg.Events.Exchange,
					Prefix:   cfg.Events.Prefix,
				})); err != nil {
					return err
				}
			}
			if err := plugins.InitAll(ctx); err != nil {
				return err
			}
			defer plugins.CloseAll()

			opts := []gateway.ServerOption{gateway.WithHooks(rt.hooks)}
			if cfg.OAuth.Enabled {
				opts = append(opts, gateway.WithOAuth(rt.oauth))
			}

			if autoRestart {
				go autorestart.RestartOnChange()
			}

			return gateway.New(cfg, h, logger, opts...).Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().BoolVar(&force, "force", false, "start even if another instance holds the lock")
	cmd.Flags().BoolVar(&autoRestart, "autorestart", false, "restart when the binary changes")

	return cmd
}

// accountID names the account in the subscriber table. The app id is
// preferred; token-only setups fall back to a fixed name.
func accountID(cfg config.Config) string {
	if cfg.Account.AppID != "" {
		return cfg.Account.AppID
	}
	return "default"
}

func buildHandlers(rt *runtime) (router.Handlers, error) {
	reg := router.NewRegistry(rt.log)
	handlers.Register(reg, handlers.Deps{
		Account:     accountID(rt.cfg),
		Welcome:     rt.cfg.Webhook.Welcome,
		Subscribers: rt.subscribers,
		Hooks:       rt.hooks,
		Log:         rt.log,
	})
	h, ok := reg.Lookup(rt.cfg.Webhook.Namespace)
	if !ok {
		return router.Handlers{}, fmt.Errorf("unknown handler namespace %q (have %v)", rt.cfg.Webhook.Namespace, reg.Namespaces())
	}
	return h, nil
}
