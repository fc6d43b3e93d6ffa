package config

import "time"

// Config is the root configuration for oagate.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Account  AccountConfig  `yaml:"account,omitempty"`
	Webhook  WebhookConfig  `yaml:"webhook,omitempty"`
	OAuth    OAuthConfig    `yaml:"oauth,omitempty"`
	Platform PlatformConfig `yaml:"platform,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Events   EventsConfig   `yaml:"events,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// GatewayConfig controls the HTTP listener.
type GatewayConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	PublicURL      string     `yaml:"publicURL,omitempty"` // external base URL, used for OAuth redirects
	TLS            GatewayTLS `yaml:"tls,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// AccountConfig identifies the official account.
type AccountConfig struct {
	Platform  string `yaml:"platform,omitempty"` // "weixin" | "yixin" and aliases
	AppID     string `yaml:"appId,omitempty"`
	AppSecret string `yaml:"appSecret,omitempty"`
	Token     string `yaml:"token,omitempty"` // webhook signing token
}

// WebhookConfig controls the inbound message endpoint.
type WebhookConfig struct {
	Path         string `yaml:"path,omitempty"`
	Namespace    string `yaml:"namespace,omitempty"` // handler set: "default" | "echo"
	Welcome      string `yaml:"welcome,omitempty"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes,omitempty"`
}

// OAuthConfig controls the web authorization callback.
type OAuthConfig struct {
	Enabled      bool   `yaml:"enabled,omitempty"`
	CallbackPath string `yaml:"callbackPath,omitempty"`
	Scope        string `yaml:"scope,omitempty"` // "snsapi_base" | "snsapi_userinfo"
	Lang         string `yaml:"lang,omitempty"`
}

// PlatformConfig overrides the platform API hosts.
type PlatformConfig struct {
	BaseURL string        `yaml:"baseURL,omitempty"`
	OpenURL string        `yaml:"openURL,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// CacheConfig selects where credentials persist between restarts.
type CacheConfig struct {
	Backend string        `yaml:"backend,omitempty"` // "sqlite" | "file" | "bolt" | "memory"
	Dir     string        `yaml:"dir,omitempty"`
	Skew    time.Duration `yaml:"skew,omitempty"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// EventsConfig enables forwarding of hook events to an AMQP broker.
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	AMQPURL  string `yaml:"amqpURL,omitempty"`
	Exchange string `yaml:"exchange,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
