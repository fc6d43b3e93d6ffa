package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/oagate/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Options configures a Store.
type Options struct {
	// Kind partitions this store's records in the shared Cache, e.g.
	// "access_token" or "oauth".
	Kind    string
	Cache   Cache
	Fetch   FetchFunc
	Refresh RefreshFunc
	// Skew defaults to DefaultSkew.
	Skew time.Duration
	// SingleUse keys may be fetched at most once. Afterwards only the
	// refresh path can produce a credential for them.
	SingleUse bool
	Now       func() time.Time
	Log       *logging.Logger
	// OnRenew is called after a credential was fetched or refreshed.
	OnRenew func(ctx context.Context, kind, key string, c *Credential)
}

// Store serves valid credentials per key.
type Store struct {
	opts  Options
	log   *logging.Logger
	group singleflight.Group

	mu        sync.Mutex
	live      map[string]*Credential
	exchanged map[string]struct{}
}

// New creates a credential store. Fetch is required.
func New(opts Options) *Store {
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache()
	}
	if opts.Skew == 0 {
		opts.Skew = DefaultSkew
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logging.New(nil, "silent")
	}
	return &Store{
		opts:      opts,
		log:       opts.Log.Sub("credential").With("kind", opts.Kind),
		live:      make(map[string]*Credential),
		exchanged: make(map[string]struct{}),
	}
}

// Kind returns the record partition this store writes to.
func (s *Store) Kind() string { return s.opts.Kind }

// Get returns a valid credential for key, consulting memory, then the
// cache, then the platform. Concurrent calls for one key share a single
// fetch. Platform errors are returned unchanged.
func (s *Store) Get(ctx context.Context, key string) (*Credential, error) {
	if c := s.memory(key); c.ValidAt(s.opts.Now(), s.opts.Skew) {
		return c.clone(), nil
	}
	return s.shared(ctx, key, func(ctx context.Context) (*Credential, error) {
		return s.obtain(ctx, key)
	})
}

// Refresh forces the refresh path for key and replaces the cached record.
func (s *Store) Refresh(ctx context.Context, key string) (*Credential, error) {
	return s.shared(ctx, "refresh\x00"+key, func(ctx context.Context) (*Credential, error) {
		stale := s.memory(key)
		if stale == nil {
			stale = s.load(ctx, key)
		}
		if s.opts.Refresh == nil || stale == nil || stale.RefreshToken == "" {
			return nil, ErrNotRefreshable
		}
		return s.refresh(ctx, key, stale)
	})
}

// shared runs fn once for all concurrent callers of key. The call is
// detached from any one caller's cancellation; each caller stops waiting
// when its own ctx is done.
func (s *Store) shared(ctx context.Context, key string, fn func(context.Context) (*Credential, error)) (*Credential, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Credential).clone(), nil
	}
}

// Invalidate forgets key in memory and in the cache. A single-use key
// stays consumed.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.live, key)
	s.mu.Unlock()

	if err := s.opts.Cache.Delete(ctx, s.opts.Kind, key); err != nil {
		return fmt.Errorf("deleting cached credential: %w", err)
	}
	s.log.Debug().Str("key", key).Msg("credential invalidated")
	return nil
}

// State reports where key is in its lifecycle without contacting the
// platform.
func (s *Store) State(ctx context.Context, key string) State {
	now := s.opts.Now()
	mem := s.memory(key)
	if mem.ValidAt(now, s.opts.Skew) {
		return StateLive
	}
	cached := s.load(ctx, key)
	switch {
	case cached.ValidAt(now, s.opts.Skew):
		return StateCached
	case cached != nil || mem != nil:
		return StateExpired
	}
	return StateEmpty
}

func (s *Store) obtain(ctx context.Context, key string) (*Credential, error) {
	now := s.opts.Now()

	stale := s.memory(key)
	if stale.ValidAt(now, s.opts.Skew) {
		return stale, nil
	}

	cached := s.load(ctx, key)
	if cached.ValidAt(now, s.opts.Skew) {
		s.promote(key, cached)
		s.log.Debug().Str("key", key).Msg("credential loaded from cache")
		return cached, nil
	}
	if cached != nil && (stale == nil || cached.ExpiresAt.After(stale.ExpiresAt)) {
		stale = cached
	}

	if stale != nil && stale.RefreshToken != "" && s.opts.Refresh != nil {
		fresh, err := s.refresh(ctx, key, stale)
		if err == nil {
			return fresh, nil
		}
		if s.opts.SingleUse {
			return nil, fmt.Errorf("%w: %w", ErrCodeConsumed, err)
		}
		s.log.Warn().Err(err).Str("key", key).Msg("refresh failed, fetching a new credential")
	}

	if s.opts.SingleUse && (stale != nil || s.wasExchanged(key)) {
		return nil, ErrCodeConsumed
	}

	fresh, err := s.opts.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if fresh == nil || fresh.Value == "" {
		return nil, ErrEmptyCredential
	}
	if s.opts.SingleUse {
		s.mu.Lock()
		s.exchanged[key] = struct{}{}
		s.mu.Unlock()
	}
	s.renewed(ctx, key, fresh, "fetched")
	return fresh, nil
}

func (s *Store) refresh(ctx context.Context, key string, stale *Credential) (*Credential, error) {
	fresh, err := s.opts.Refresh(ctx, key, stale.clone())
	if err != nil {
		return nil, err
	}
	if fresh == nil || fresh.Value == "" {
		return nil, ErrEmptyCredential
	}
	s.renewed(ctx, key, fresh, "refreshed")
	return fresh, nil
}

// renewed persists and promotes a credential obtained from the platform.
// A failed persist is logged and the credential is still used.
func (s *Store) renewed(ctx context.Context, key string, c *Credential, how string) {
	if err := s.opts.Cache.Save(ctx, s.opts.Kind, key, c); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("persisting credential failed")
	}
	s.promote(key, c)
	s.log.Info().
		Str("key", key).
		Time("expiresAt", c.ExpiresAt).
		Msg("credential " + how)
	if s.opts.OnRenew != nil {
		s.opts.OnRenew(ctx, s.opts.Kind, key, c.clone())
	}
}

// load reads the cache. Errors other than ErrNotFound are logged and
// treated as a miss.
func (s *Store) load(ctx context.Context, key string) *Credential {
	c, err := s.opts.Cache.Load(ctx, s.opts.Kind, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("credential cache load failed")
		}
		return nil
	}
	return c
}

func (s *Store) memory(key string) *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[key]
}

func (s *Store) promote(key string, c *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[key] = c.clone()
}

func (s *Store) wasExchanged(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.exchanged[key]
	return ok
}
