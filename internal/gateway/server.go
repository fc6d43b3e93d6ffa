// Package gateway serves the webhook endpoint and the OAuth callback.
package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/soyeahso/oagate/internal/config"
	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/oauth"
	"github.com/soyeahso/oagate/internal/router"
)

// Server is the oagate HTTP server.
type Server struct {
	cfg    config.Config
	log    *logging.Logger
	router *router.Router

	// Hook manager (optional, nil if not configured)
	hooks *hooks.Manager

	// OAuth manager (optional, nil disables the callback route)
	oauth *oauth.Manager

	now         func() time.Time
	startedAt   time.Time
	httpServer  *http.Server
	authLimiter *authRateLimiter
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithOAuth enables the OAuth callback route.
func WithOAuth(m *oauth.Manager) ServerOption {
	return func(s *Server) {
		s.oauth = m
	}
}

// WithClock sets the clock used for reply timestamps.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a gateway server dispatching webhook messages to h.
func New(cfg config.Config, h router.Handlers, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:         cfg,
		log:         log.Sub("gateway"),
		router:      router.New(h, log),
		now:         time.Now,
		authLimiter: newAuthRateLimiter(),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log, s.cfg)
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Gateway)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	// Enable TLS if configured
	if s.cfg.Gateway.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.Gateway.TLS.CertPath, s.cfg.Gateway.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		ln = tls.NewListener(ln, tlsCfg)
		s.log.Info().Msg("TLS enabled")
	}

	go s.authLimiter.run(ctx)
	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Gateway.Bind).
		Str("webhook", s.cfg.Webhook.Path).
		Str("namespace", s.cfg.Webhook.Namespace).
		Bool("oauth", s.oauth != nil).
		Msg("gateway server ready")

	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.EventGatewayStart, map[string]any{
			"addr": ln.Addr().String(),
		})
	}

	// Shutdown when context is cancelled
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone

	if s.hooks != nil {
		s.hooks.Emit(context.Background(), hooks.EventGatewayStop, map[string]any{
			"uptime": time.Since(s.startedAt).Round(time.Second).String(),
		})
		s.hooks.Wait()
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// emit dispatches a hook event without blocking the request.
func (s *Server) emit(ctx context.Context, event string, data map[string]any) {
	if s.hooks != nil {
		s.hooks.EmitAsync(context.WithoutCancel(ctx), event, data)
	}
}
