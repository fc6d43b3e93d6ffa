// Package credential keeps expiring bearer credentials alive across
// requests: in memory, in a persistent cache and, when both are stale,
// by fetching or refreshing from the platform.
package credential

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNotFound is returned by Cache.Load when no record exists.
	ErrNotFound = errors.New("credential not found")
	// ErrEmptyCredential is returned when a credential without a value
	// would be persisted or promoted.
	ErrEmptyCredential = errors.New("credential has empty value")
	// ErrCodeConsumed is returned for a single-use key that was already
	// exchanged and cannot be refreshed.
	ErrCodeConsumed = errors.New("authorization code already consumed")
	// ErrNotRefreshable is returned by Store.Refresh when there is no
	// refresh token or no refresh function.
	ErrNotRefreshable = errors.New("credential cannot be refreshed")
)

// DefaultSkew is how long before ExpiresAt a credential stops being used.
const DefaultSkew = 20 * time.Second

// Credential is a bearer token with its absolute expiry.
type Credential struct {
	Value        string    `json:"value"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	// Subject is the user the credential belongs to (openid), if any.
	Subject string `json:"subject,omitempty"`
	Scope   string `json:"scope,omitempty"`
}

// ValidAt reports whether c can be used at now, treating it as expired
// skew early.
func (c *Credential) ValidAt(now time.Time, skew time.Duration) bool {
	if c == nil || c.Value == "" {
		return false
	}
	return now.Add(skew).Before(c.ExpiresAt)
}

// Token adapts c to an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.Value,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
	extra := map[string]any{}
	if c.Subject != "" {
		extra["openid"] = c.Subject
	}
	if c.Scope != "" {
		extra["scope"] = c.Scope
	}
	if len(extra) > 0 {
		tok = tok.WithExtra(extra)
	}
	return tok
}

func (c *Credential) clone() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// State is the lifecycle position of a key.
type State int

const (
	// StateEmpty: nothing in memory or cache.
	StateEmpty State = iota
	// StateCached: a valid record exists only in the persistent cache.
	StateCached
	// StateLive: a valid credential is held in memory.
	StateLive
	// StateExpired: the newest known credential is past its skew-adjusted expiry.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateCached:
		return "cached"
	case StateLive:
		return "live"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// Cache persists credentials across processes. Records are partitioned by
// kind. Implementations must reject empty values with ErrEmptyCredential.
type Cache interface {
	Load(ctx context.Context, kind, key string) (*Credential, error)
	Save(ctx context.Context, kind, key string, c *Credential) error
	Delete(ctx context.Context, kind, key string) error
}

// FetchFunc obtains a brand-new credential for key from the platform.
type FetchFunc func(ctx context.Context, key string) (*Credential, error)

// RefreshFunc exchanges stale's refresh token for a new credential.
type RefreshFunc func(ctx context.Context, key string, stale *Credential) (*Credential, error)
