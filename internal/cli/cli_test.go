package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/soyeahso/oagate/internal/config"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/platform"
	"github.com/soyeahso/oagate/internal/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with an isolated OAGATE_HOME.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func homeWithConfig(t *testing.T, yaml string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("OAGATE_HOME", home)
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(yaml), 0o600))
	}
	return home
}

func TestVersionCmd(t *testing.T) {
	homeWithConfig(t, "")
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "oagate")
}

func TestSignCmd(t *testing.T) {
	homeWithConfig(t, "account:\n  token: tok\n")
	out, err := run(t, "sign", "--timestamp", "1700000000", "--nonce", "n1", "--echostr", "hello")
	require.NoError(t, err)

	q, err := url.ParseQuery(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, signature.Sign("tok", "1700000000", "n1"), q.Get("signature"))
	assert.Equal(t, "hello", q.Get("echostr"))

	homeWithConfig(t, "")
	_, err = run(t, "sign")
	assert.Error(t, err)
}

func TestConfigCmds(t *testing.T) {
	home := homeWithConfig(t, "")

	out, err := run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "config.yaml"))

	_, err = run(t, "config", "init")
	assert.Error(t, err, "existing file is kept")

	_, err = run(t, "config", "set", "gateway.port", "9090")
	require.NoError(t, err)
	out, err = run(t, "config", "get", "gateway.port")
	require.NoError(t, err)
	assert.Equal(t, "9090\n", out)

	_, err = run(t, "config", "unset", "gateway.port")
	require.NoError(t, err)
	_, err = run(t, "config", "get", "gateway.port")
	assert.Error(t, err)

	out, err = run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml")+"\n", out)
}

func TestConfigValidateCmd(t *testing.T) {
	homeWithConfig(t, "gateway:\n  port: 70000\n")
	out, err := run(t, "config", "validate")
	assert.Error(t, err)
	assert.Contains(t, out, "gateway.port")
	assert.Contains(t, out, "account.token")

	homeWithConfig(t, "account:\n  token: tok\n")
	out, err = run(t, "config", "validate")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestTokenCmd(t *testing.T) {
	var issued atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != platform.PathToken {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":7200}`, issued.Add(1))
	}))
	defer srv.Close()

	homeWithConfig(t, fmt.Sprintf(`account:
  appId: app1
  appSecret: secret
  token: tok
platform:
  baseURL: %s
cache:
  backend: sqlite
`, srv.URL))

	out, err := run(t, "token")
	require.NoError(t, err)
	assert.Equal(t, "tok-1\n", out)

	out, err = run(t, "token")
	require.NoError(t, err)
	assert.Equal(t, "tok-1\n", out, "served from the sqlite cache")

	out, err = run(t, "token", "--refresh")
	require.NoError(t, err)
	assert.Equal(t, "tok-2\n", out)
}

func TestTokenCmd_RequiresApp(t *testing.T) {
	homeWithConfig(t, "account:\n  token: tok\n")
	_, err := run(t, "token")
	assert.ErrorContains(t, err, "appId")
}

func TestOAuthURLCmd(t *testing.T) {
	homeWithConfig(t, `account:
  appId: app1
  appSecret: secret
  token: tok
gateway:
  publicURL: https://svc.example.com
cache:
  backend: memory
`)
	out, err := run(t, "oauth", "url", "--state", "s1")
	require.NoError(t, err)
	u := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(u, platform.DefaultOpenURL+"/connect/oauth2/authorize?appid=app1&"))
	assert.Contains(t, u, "redirect_uri="+url.QueryEscape("https://svc.example.com"+config.DefaultCallbackPath))
	assert.Contains(t, u, "state=s1")
	assert.Contains(t, u, "scope=snsapi_base")
}

func TestStatusCmd(t *testing.T) {
	homeWithConfig(t, "account:\n  token: tok\ncache:\n  backend: memory\n")
	out, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Webhook: path=/wechat namespace=default")
	assert.Contains(t, out, "Token:   empty")
	assert.Contains(t, out, "Subscribers: 0 active")
}

func TestBuildHandlers(t *testing.T) {
	homeWithConfig(t, "")
	var err error
	paths, err = config.ResolvePaths()
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Cache.Backend = "memory"
	rt, err := openRuntime(t.Context(), cfg, logging.New(nil, "silent"))
	require.NoError(t, err)
	defer rt.Close()

	h, err := buildHandlers(rt)
	require.NoError(t, err)
	assert.NotNil(t, h.OnSubscribe)

	rt.cfg.Webhook.Namespace = "nope"
	_, err = buildHandlers(rt)
	assert.ErrorContains(t, err, "nope")
}

func TestAccountID(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, "default", accountID(cfg))
	cfg.Account.AppID = "wx123"
	assert.Equal(t, "wx123", accountID(cfg))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("TRUE"))
	assert.Equal(t, false, parseValue("false"))
	assert.Equal(t, 42, parseValue("42"))
	assert.Equal(t, 1.5, parseValue("1.5"))
	assert.Equal(t, "hello", parseValue("hello"))
}
