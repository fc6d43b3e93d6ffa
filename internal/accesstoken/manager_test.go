package accesstoken

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/oagate/internal/credential"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform issues sequential tokens and can reject the first N
// management calls as invalid-token.
type fakePlatform struct {
	mu         sync.Mutex
	issued     int
	rejectNext int
	expiresIn  string
	seenTokens []string
}

func (p *fakePlatform) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		switch r.URL.Path {
		case platform.PathToken:
			assert.Equal(t, "app1", r.URL.Query().Get("appid"))
			p.issued++
			expires := p.expiresIn
			if expires == "" {
				expires = `,"expires_in":7200`
			}
			fmt.Fprintf(w, `{"access_token":"tok-%d"%s}`, p.issued, expires)
		case platform.PathUserInfo:
			tok := r.URL.Query().Get("access_token")
			p.seenTokens = append(p.seenTokens, tok)
			if p.rejectNext > 0 {
				p.rejectNext--
				fmt.Fprint(w, `{"errcode":40001,"errmsg":"invalid credential"}`)
				return
			}
			fmt.Fprintf(w, `{"subscribe":1,"openid":%q,"nickname":"Ann","language":%q}`,
				r.URL.Query().Get("openid"), r.URL.Query().Get("lang"))
		case platform.PathMediaUpload:
			p.seenTokens = append(p.seenTokens, r.URL.Query().Get("access_token"))
			f, _, err := r.FormFile("media")
			if !assert.NoError(t, err) {
				return
			}
			data, _ := io.ReadAll(f)
			if p.rejectNext > 0 {
				p.rejectNext--
				fmt.Fprint(w, `{"errcode":42001,"errmsg":"access_token expired"}`)
				return
			}
			fmt.Fprintf(w, `{"type":"image","media_id":"m-%d-bytes"}`, len(data))
		default:
			fmt.Fprint(w, `{"errcode":0,"errmsg":"ok"}`)
		}
	}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newManager(t *testing.T, p *fakePlatform, c *clock, cache credential.Cache) *Manager {
	t.Helper()
	srv := httptest.NewServer(p.handler(t))
	t.Cleanup(srv.Close)
	log := logging.New(nil, "silent")
	return New(Options{
		AppID:     "app1",
		AppSecret: "secret",
		Client:    platform.NewClient(platform.Options{BaseURL: srv.URL, Log: log}),
		Cache:     cache,
		Now:       c.Now,
		Log:       log,
	})
}

func TestToken_CachedUntilExpiry(t *testing.T) {
	p := &fakePlatform{}
	c := &clock{now: time.Unix(1700000000, 0)}
	m := newManager(t, p, c, credential.NewMemoryCache())
	ctx := context.Background()

	tok, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	cred, err := m.Credential(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.now.Add(7200*time.Second), cred.ExpiresAt)

	c.now = c.now.Add(7200 * time.Second)
	tok, err = m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, 2, p.issued)
}

func TestToken_MissingExpiresInIsImmediatelyStale(t *testing.T) {
	p := &fakePlatform{expiresIn: " "}
	c := &clock{now: time.Unix(1700000000, 0)}
	m := newManager(t, p, c, credential.NewMemoryCache())
	ctx := context.Background()

	_, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, credential.StateExpired, m.State(ctx))

	tok, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestDo_RetriesOnceWithFreshToken(t *testing.T) {
	p := &fakePlatform{rejectNext: 1}
	c := &clock{now: time.Unix(1700000000, 0)}
	m := newManager(t, p, c, credential.NewMemoryCache())

	profile, err := m.UserInfo(context.Background(), "openid123", "zh_CN")
	require.NoError(t, err)
	assert.Equal(t, "openid123", profile.OpenID)
	assert.Equal(t, "zh_CN", profile.Language)
	assert.Equal(t, []string{"tok-1", "tok-2"}, p.seenTokens)
}

func TestDo_GivesUpAfterSecondRejection(t *testing.T) {
	p := &fakePlatform{rejectNext: 2}
	c := &clock{now: time.Unix(1700000000, 0)}
	m := newManager(t, p, c, credential.NewMemoryCache())

	_, err := m.UserInfo(context.Background(), "openid123", "")
	require.Error(t, err)
	assert.True(t, platform.IsTokenInvalid(err))
	assert.Len(t, p.seenTokens, 2)
}

func TestDo_OtherErrorsNotRetried(t *testing.T) {
	p := &fakePlatform{}
	c := &clock{now: time.Unix(1700000000, 0)}
	m := newManager(t, p, c, credential.NewMemoryCache())

	calls := 0
	boom := &platform.Error{Code: 45009, Message: "reach max api daily quota limit"}
	err := m.Do(context.Background(), func(string) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, p.issued)
}

func TestToken_FetchErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errcode":40125,"errmsg":"invalid appsecret"}`)
	}))
	defer srv.Close()

	m := New(Options{
		AppID:  "app1",
		Client: platform.NewClient(platform.Options{BaseURL: srv.URL}),
	})
	_, err := m.Token(context.Background())
	var pe *platform.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 40125, pe.Code)
}

func TestInvalidateAndTokenSource(t *testing.T) {
	p := &fakePlatform{}
	c := &clock{now: time.Unix(1700000000, 0)}
	cache := credential.NewMemoryCache()
	m := newManager(t, p, c, cache)
	ctx := context.Background()

	ts := m.TokenSource(ctx)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)
	assert.Equal(t, c.now.Add(7200*time.Second), tok.Expiry)
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, m.Invalidate(ctx))
	assert.Zero(t, cache.Len())
	assert.Equal(t, credential.StateEmpty, m.State(ctx))

	tok, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok.AccessToken)
}

func TestUploadMedia_RetriesWithSameBytes(t *testing.T) {
	p := &fakePlatform{rejectNext: 1}
	c := &clock{now: time.Unix(1700000000, 0)}
	m := newManager(t, p, c, credential.NewMemoryCache())

	out, err := m.UploadMedia(context.Background(), "image", "a.jpg", []byte("12345"))
	require.NoError(t, err)
	assert.Equal(t, "m-5-bytes", out.MediaID)
	assert.Equal(t, []string{"tok-1", "tok-2"}, p.seenTokens)
}

func TestWithTokenDoesNotMutateQuery(t *testing.T) {
	q := url.Values{"openid": {"x"}}
	got := withToken(q, "T")
	assert.Equal(t, "T", got.Get("access_token"))
	assert.Empty(t, q.Get("access_token"))
}
