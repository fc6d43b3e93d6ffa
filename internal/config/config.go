package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default values.
const (
	DefaultPort         = 8080
	DefaultWebhookPath  = "/wechat"
	DefaultCallbackPath = "/oauth/callback"
	DefaultMaxBodyBytes = 1 << 20
	DefaultTimeout      = 10 * time.Second
	DefaultSkew         = 20 * time.Second
	DefaultExchange     = "oagate"
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Account.Platform == "" {
		cfg.Account.Platform = "weixin"
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = DefaultWebhookPath
	}
	if cfg.Webhook.Namespace == "" {
		cfg.Webhook.Namespace = "default"
	}
	if cfg.Webhook.MaxBodyBytes == 0 {
		cfg.Webhook.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.OAuth.CallbackPath == "" {
		cfg.OAuth.CallbackPath = DefaultCallbackPath
	}
	if cfg.OAuth.Scope == "" {
		cfg.OAuth.Scope = "snsapi_base"
	}
	if cfg.OAuth.Lang == "" {
		cfg.OAuth.Lang = "zh_CN"
	}
	if cfg.Platform.Timeout == 0 {
		cfg.Platform.Timeout = DefaultTimeout
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "sqlite"
	}
	if cfg.Cache.Skew == 0 {
		cfg.Cache.Skew = DefaultSkew
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = DefaultExchange
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}
