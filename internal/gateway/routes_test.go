package gateway

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/soyeahso/oagate/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	_, ts := testServer(t, testConfig(), router.Handlers{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}

func TestNotFoundEndpoint(t *testing.T) {
	_, ts := testServer(t, testConfig(), router.Handlers{})

	resp, err := http.Get(ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/nonexistent", body["path"])
}

func TestWebhookPathFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Webhook.Path = "/hooks/oa"
	_, ts := testServer(t, cfg, router.Handlers{})

	resp, err := http.Get(ts.URL + "/hooks/oa?" + signedQuery(map[string][]string{"echostr": {"hi"}}).Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/wechat")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
