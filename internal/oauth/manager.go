// Package oauth runs the web authorization flow: it exchanges one-time
// codes for user tokens and keeps those tokens refreshed.
package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/soyeahso/oagate/internal/credential"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/platform"
)

// Kind is the cache partition for user tokens.
const Kind = "oauth"

// ErrNoCode is returned when an empty authorization code is presented.
var ErrNoCode = errors.New("missing authorization code")

// Options configures a Manager.
type Options struct {
	AppID     string
	AppSecret string
	Client    *platform.Client
	Cache     credential.Cache
	Skew      time.Duration
	Now       func() time.Time
	Log       *logging.Logger
	OnRenew   func(ctx context.Context, kind, key string, c *credential.Credential)
}

// Manager exchanges codes and serves the resulting user tokens.
type Manager struct {
	appID  string
	secret string
	client *platform.Client
	store  *credential.Store
	now    func() time.Time
	log    *logging.Logger
}

type codeKey struct{}

// New creates an OAuth manager.
func New(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logging.New(nil, "silent")
	}
	m := &Manager{
		appID:  opts.AppID,
		secret: opts.AppSecret,
		client: opts.Client,
		now:    opts.Now,
		log:    opts.Log.Sub("oauth"),
	}
	m.store = credential.New(credential.Options{
		Kind:      Kind,
		Cache:     opts.Cache,
		Fetch:     m.exchange,
		Refresh:   m.refresh,
		Skew:      opts.Skew,
		SingleUse: true,
		Now:       opts.Now,
		Log:       opts.Log,
		OnRenew:   opts.OnRenew,
	})
	return m
}

// CacheKey derives the cache key for an authorization code.
func CacheKey(code string) string {
	sum := sha256.Sum256([]byte(code))
	return "code_" + hex.EncodeToString(sum[:])
}

// AuthURL returns the URL that sends a browser to the authorization page.
func (m *Manager) AuthURL(redirectURI, state, scope string) string {
	return m.client.AuthorizeURL(m.appID, redirectURI, scope, state)
}

// Authorize returns a valid user token for code, exchanging it on first
// use and refreshing it afterwards. A code whose token can no longer be
// refreshed fails with credential.ErrCodeConsumed.
func (m *Manager) Authorize(ctx context.Context, code string) (*credential.Credential, error) {
	if code == "" {
		return nil, ErrNoCode
	}
	ctx = context.WithValue(ctx, codeKey{}, code)
	return m.store.Get(ctx, CacheKey(code))
}

// Refresh forces a refresh of the token obtained with code.
func (m *Manager) Refresh(ctx context.Context, code string) (*credential.Credential, error) {
	if code == "" {
		return nil, ErrNoCode
	}
	return m.store.Refresh(ctx, CacheKey(code))
}

// State reports the lifecycle state of the token for code.
func (m *Manager) State(ctx context.Context, code string) credential.State {
	return m.store.State(ctx, CacheKey(code))
}

// OpenID returns the user id the code was issued for.
func (m *Manager) OpenID(ctx context.Context, code string) (string, error) {
	c, err := m.Authorize(ctx, code)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// UserInfo returns the authorizing user's profile. With the base scope
// only the openid is available.
func (m *Manager) UserInfo(ctx context.Context, code, lang string) (*platform.UserProfile, error) {
	c, err := m.Authorize(ctx, code)
	if err != nil {
		return nil, err
	}
	if c.Scope == platform.ScopeBase {
		return &platform.UserProfile{OpenID: c.Subject}, nil
	}
	return m.client.OAuthUserInfo(ctx, c.Value, c.Subject, lang)
}

// Check asks the platform whether c is still accepted.
func (m *Manager) Check(ctx context.Context, c *credential.Credential) error {
	return m.client.CheckUserToken(ctx, c.Value, c.Subject)
}

func (m *Manager) exchange(ctx context.Context, key string) (*credential.Credential, error) {
	code, _ := ctx.Value(codeKey{}).(string)
	if code == "" {
		return nil, ErrNoCode
	}
	resp, err := m.client.ExchangeCode(ctx, m.appID, m.secret, code)
	if err != nil {
		return nil, err
	}
	m.log.Debug().Str("openid", resp.OpenID).Str("scope", resp.Scope).Msg("authorization code exchanged")
	return m.toCredential(resp, nil), nil
}

func (m *Manager) refresh(ctx context.Context, _ string, stale *credential.Credential) (*credential.Credential, error) {
	resp, err := m.client.RefreshUserToken(ctx, m.appID, stale.RefreshToken)
	if err != nil {
		return nil, err
	}
	return m.toCredential(resp, stale), nil
}

func (m *Manager) toCredential(resp *platform.OAuthTokenResponse, prev *credential.Credential) *credential.Credential {
	c := &credential.Credential{
		Value:        resp.AccessToken,
		ExpiresAt:    m.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		RefreshToken: resp.RefreshToken,
		Subject:      resp.OpenID,
		Scope:        resp.Scope,
	}
	if prev != nil {
		if c.RefreshToken == "" {
			c.RefreshToken = prev.RefreshToken
		}
		if c.Subject == "" {
			c.Subject = prev.Subject
		}
		if c.Scope == "" {
			c.Scope = prev.Scope
		}
	}
	return c
}
