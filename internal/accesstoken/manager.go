// Package accesstoken manages the application-level access token and
// issues management calls with it.
package accesstoken

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/soyeahso/oagate/internal/credential"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/platform"
	"golang.org/x/oauth2"
)

// Kind is the cache partition for access tokens.
const Kind = "access_token"

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

// Manager keeps one application's access token live. Tokens are keyed by
// app id so several accounts can share a cache.
type Manager struct {
	appID  string
	secret string
	client *platform.Client
	store  *credential.Store
	now    func() time.Time
	log    *logging.Logger
}

// New creates an access-token manager.
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
		log:    opts.Log.Sub("accesstoken"),
	}
	m.store = credential.New(credential.Options{
		Kind:    Kind,
		Cache:   opts.Cache,
		Fetch:   m.fetch,
		Skew:    opts.Skew,
		Now:     opts.Now,
		Log:     opts.Log,
		OnRenew: opts.OnRenew,
	})
	return m
}

func (m *Manager) fetch(ctx context.Context, appID string) (*credential.Credential, error) {
	resp, err := m.client.FetchAccessToken(ctx, appID, m.secret)
	if err != nil {
		return nil, err
	}
	return &credential.Credential{
		Value:     resp.AccessToken,
		ExpiresAt: m.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

// AppID returns the application the manager serves.
func (m *Manager) AppID() string { return m.appID }

// Token returns a live access token.
func (m *Manager) Token(ctx context.Context) (string, error) {
	c, err := m.store.Get(ctx, m.appID)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// Credential returns the live access token with its expiry.
func (m *Manager) Credential(ctx context.Context) (*credential.Credential, error) {
	return m.store.Get(ctx, m.appID)
}

// Invalidate drops the token from memory and the cache.
func (m *Manager) Invalidate(ctx context.Context) error {
	return m.store.Invalidate(ctx, m.appID)
}

// State reports the token's lifecycle state.
func (m *Manager) State(ctx context.Context) credential.State {
	return m.store.State(ctx, m.appID)
}

// TokenSource adapts the manager to oauth2.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	c, err := s.m.Credential(s.ctx)
	if err != nil {
		return nil, err
	}
	return c.Token(), nil
}

// Do runs fn with a live token. When the platform rejects the token as
// invalid, the token is dropped and fn runs once more with a fresh one.
func (m *Manager) Do(ctx context.Context, fn func(token string) error) error {
	token, err := m.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtaining access token: %w", err)
	}
	err = fn(token)
	if !platform.IsTokenInvalid(err) {
		return err
	}

	m.log.Warn().Int("errcode", platform.Code(err)).Msg("access token rejected, fetching a new one")
	if ierr := m.Invalidate(ctx); ierr != nil {
		m.log.Warn().Err(ierr).Msg("invalidating access token")
	}
	token, err = m.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtaining access token: %w", err)
	}
	return fn(token)
}

func withToken(query url.Values, token string) url.Values {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("access_token", token)
	return q
}

// GetJSON issues a management GET with the access token.
func (m *Manager) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return m.Do(ctx, func(token string) error {
		return m.client.Get(ctx, path, withToken(query, token), out)
	})
}

// PostJSON issues a management POST with the access token.
func (m *Manager) PostJSON(ctx context.Context, path string, query url.Values, body, out any) error {
	return m.Do(ctx, func(token string) error {
		return m.client.PostJSON(ctx, path, withToken(query, token), body, out)
	})
}

// UploadMedia uploads a temporary media file and returns its media id
// response.
func (m *Manager) UploadMedia(ctx context.Context, mediaType, filename string, data []byte) (*platform.MediaUploadResponse, error) {
	var out platform.MediaUploadResponse
	err := m.Do(ctx, func(token string) error {
		q := withToken(url.Values{"type": {mediaType}}, token)
		return m.client.PostFile(ctx, platform.PathMediaUpload, q, "media", filename, bytes.NewReader(data), &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UserInfo looks up a follower's profile.
func (m *Manager) UserInfo(ctx context.Context, openID, lang string) (*platform.UserProfile, error) {
	q := url.Values{"openid": {openID}}
	if lang != "" {
		q.Set("lang", lang)
	}
	var out platform.UserProfile
	if err := m.GetJSON(ctx, platform.PathUserInfo, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
