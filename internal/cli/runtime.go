package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/soyeahso/oagate/internal/accesstoken"
	"github.com/soyeahso/oagate/internal/config"
	"github.com/soyeahso/oagate/internal/credential"
	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/oauth"
	"github.com/soyeahso/oagate/internal/platform"
	"github.com/soyeahso/oagate/internal/store"
)

// purgeAge is how long an expired credential record is kept. User tokens
// stay refreshable for a while after the access token itself expires.
const purgeAge = 30 * 24 * time.Hour

// runtime holds the collaborators shared by the commands that talk to the
// platform or the local stores.
type runtime struct {
	cfg         config.Config
	log         *logging.Logger
	db          *store.DB
	cache       credential.Cache
	client      *platform.Client
	tokens      *accesstoken.Manager
	oauth       *oauth.Manager
	hooks       *hooks.Manager
	subscribers *store.SubscriberStore

	closers []io.Closer
}

// loadConfig reads the config file and applies the --log-level flag.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func openRuntime(ctx context.Context, cfg config.Config, log *logging.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: log, hooks: hooks.NewManager(log)}

	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = paths.Database()
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	rt.db = db
	rt.closers = append(rt.closers, db)
	rt.subscribers = store.NewSubscriberStore(db)

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		cacheDir = paths.Cache
	}
	cache, closer, err := store.OpenCache(store.CacheOptions{Backend: cfg.Cache.Backend, Dir: cacheDir, DB: db})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("opening credential cache: %w", err)
	}
	rt.cache = cache
	rt.closers = append(rt.closers, closer)

	if p, ok := cache.(interface {
		Purge(context.Context, time.Time) (int64, error)
	}); ok {
		n, err := p.Purge(ctx, time.Now().Add(-purgeAge))
		if err != nil {
			log.Warn().Err(err).Msg("purging expired credentials")
		} else if n > 0 {
			log.Info().Int64("records", n).Msg("purged expired credentials")
		}
	}

	baseURL := cfg.Platform.BaseURL
	if baseURL == "" {
		if baseURL, err = platform.BaseURL(cfg.Account.Platform); err != nil {
			rt.Close()
			return nil, err
		}
	}
	rt.client = platform.NewClient(platform.Options{
		BaseURL: baseURL,
		OpenURL: cfg.Platform.OpenURL,
		Timeout: cfg.Platform.Timeout,
		Log:     log,
	})

	onRenew := func(ctx context.Context, kind, _ string, c *credential.Credential) {
		rt.hooks.EmitAsync(context.WithoutCancel(ctx), hooks.EventCredentialRenewed, map[string]any{
			"kind":       kind,
			"expires_at": c.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	rt.tokens = accesstoken.New(accesstoken.Options{
		AppID:     cfg.Account.AppID,
		AppSecret: cfg.Account.AppSecret,
		Client:    rt.client,
		Cache:     cache,
		Skew:      cfg.Cache.Skew,
		Log:       log,
		OnRenew:   onRenew,
	})
	rt.oauth = oauth.New(oauth.Options{
		AppID:     cfg.Account.AppID,
		AppSecret: cfg.Account.AppSecret,
		Client:    rt.client,
		Cache:     cache,
		Skew:      cfg.Cache.Skew,
		Log:       log,
		OnRenew:   onRenew,
	})

	log.Debug().
		Str("db", dbPath).
		Str("cache", cfg.Cache.Backend).
		Str("platform", cfg.Account.Platform).
		Str("api", baseURL).
		Msg("runtime ready")
	return rt, nil
}

// Close waits for pending hooks and releases stores in reverse order.
func (rt *runtime) Close() {
	rt.hooks.Wait()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.log.Warn().Err(err).Msg("closing store")
		}
	}
	rt.closers = nil
}

// requireApp fails when the account credentials needed for management
// calls are missing.
func requireApp(cfg config.Config) error {
	if cfg.Account.AppID == "" || cfg.Account.AppSecret == "" {
		return fmt.Errorf("account.appId and account.appSecret must be configured")
	}
	return nil
}
