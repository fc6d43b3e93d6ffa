package gateway

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/soyeahso/oagate/internal/config"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/stretchr/testify/assert"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func TestLoggingMiddleware_RecordsStatusAndBytes(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, "info")
	handler := loggingMiddleware(requestIDMiddleware(http.HandlerFunc(okHandler)), log)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/wechat", nil))
	assert.Equal(t, "ok", rr.Body.String())
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"bytes":2`)
	assert.Contains(t, buf.String(), rr.Header().Get(requestIDHeader))

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String(), "health checks log at debug")
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := requestIDMiddleware(http.HandlerFunc(okHandler))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"missing", "", false},
		{"kept", "custom-id_123.a", true},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"unprintable", "bad id\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.incoming != "" {
				req.Header.Set(requestIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			got := rr.Header().Get(requestIDHeader)
			assert.NotEmpty(t, got)
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.NotEqual(t, tt.incoming, got)
			}
		})
	}
}

func TestRecoverMiddleware(t *testing.T) {
	log := logging.New(nil, "silent")
	handler := recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), log)

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		path    string
		want    string
	}{
		{"deny when unconfigured", nil, "http://localhost:3000", "/health", ""},
		{"wildcard", []string{"*"}, "http://a.example", "/health", "http://a.example"},
		{"specific match", []string{"http://a.example"}, "http://a.example", "/oauth/callback", "http://a.example"},
		{"specific mismatch", []string{"http://a.example"}, "http://b.example", "/health", ""},
		{"webhook never", []string{"*"}, "http://a.example", "/wechat", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := corsMiddleware(http.HandlerFunc(okHandler), tt.allowed, "/wechat")
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), []string{"*"}, "/wechat")

	req := httptest.NewRequest(http.MethodOptions, "/oauth/callback", nil)
	req.Header.Set("Origin", "http://a.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "GET, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.False(t, called)
}

func TestWithMiddleware(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.AllowedOrigins = []string{"http://a.example"}
	handler := withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/panic" {
			panic("boom")
		}
		okHandler(w, r)
	}), logging.New(nil, "silent"), cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://a.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
	assert.Equal(t, "http://a.example", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
}
