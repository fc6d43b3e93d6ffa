package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/soyeahso/oagate/internal/platform"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		add("gateway.bind", "must be one of %v, got %q", validBinds, cfg.Gateway.Bind)
	}
	if cfg.Gateway.TLS.Enabled && (cfg.Gateway.TLS.CertPath == "" || cfg.Gateway.TLS.KeyPath == "") {
		add("gateway.tls", "certPath and keyPath are required when TLS is enabled")
	}
	if cfg.Gateway.PublicURL != "" {
		if u, err := url.Parse(cfg.Gateway.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("gateway.publicURL", "must be an absolute URL, got %q", cfg.Gateway.PublicURL)
		}
	}

	// Account validation
	if _, err := platform.Resolve(cfg.Account.Platform); err != nil {
		add("account.platform", "%v", err)
	}
	if cfg.Account.Token == "" {
		add("account.token", "token is required to verify webhook signatures")
	}

	// Webhook validation
	if !strings.HasPrefix(cfg.Webhook.Path, "/") {
		add("webhook.path", "must start with /, got %q", cfg.Webhook.Path)
	}
	if cfg.Webhook.MaxBodyBytes < 0 {
		add("webhook.maxBodyBytes", "must not be negative, got %d", cfg.Webhook.MaxBodyBytes)
	}

	// OAuth validation (only if enabled)
	if cfg.OAuth.Enabled {
		if cfg.Account.AppID == "" || cfg.Account.AppSecret == "" {
			add("account.appId", "appId and appSecret are required when oauth is enabled")
		}
		validScopes := []string{"snsapi_base", "snsapi_userinfo"}
		if !slices.Contains(validScopes, cfg.OAuth.Scope) {
			add("oauth.scope", "must be one of %v, got %q", validScopes, cfg.OAuth.Scope)
		}
		if !strings.HasPrefix(cfg.OAuth.CallbackPath, "/") {
			add("oauth.callbackPath", "must start with /, got %q", cfg.OAuth.CallbackPath)
		}
		if cfg.OAuth.CallbackPath == cfg.Webhook.Path {
			add("oauth.callbackPath", "must differ from webhook.path")
		}
	}

	// Platform validation
	if cfg.Platform.Timeout < 0 {
		add("platform.timeout", "must not be negative, got %s", cfg.Platform.Timeout)
	}

	// Cache validation
	validBackends := []string{"sqlite", "file", "bolt", "memory"}
	if !slices.Contains(validBackends, cfg.Cache.Backend) {
		add("cache.backend", "must be one of %v, got %q", validBackends, cfg.Cache.Backend)
	}
	if cfg.Cache.Skew < 0 {
		add("cache.skew", "must not be negative, got %s", cfg.Cache.Skew)
	}

	// Events validation (only if enabled)
	if cfg.Events.Enabled {
		if cfg.Events.AMQPURL == "" {
			add("events.amqpURL", "required when events are enabled")
		} else if !strings.HasPrefix(cfg.Events.AMQPURL, "amqp://") && !strings.HasPrefix(cfg.Events.AMQPURL, "amqps://") {
			add("events.amqpURL", "must use the amqp:// or amqps:// scheme")
		}
		if cfg.Events.Exchange == "" {
			add("events.exchange", "exchange is required")
		}
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	return issues
}
