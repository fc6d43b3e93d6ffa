package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/logging"
)

// Registry manages plugin lifecycle.
type Registry struct {
	mu      sync.Mutex
	plugins map[string]Plugin
	order   []string // insertion order for deterministic lifecycle
	started []string
	hooks   *hooks.Manager
	log     *logging.Logger
}

// NewRegistry creates a plugin registry.
func NewRegistry(hm *hooks.Manager, log *logging.Logger) *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		hooks:   hm,
		log:     log.Sub("plugins"),
	}
}

// Register adds a plugin without initializing it.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[p.ID()]; exists {
		return fmt.Errorf("plugin already registered: %s", p.ID())
	}
	r.plugins[p.ID()] = p
	r.order = append(r.order, p.ID())
	return nil
}

// InitAll initializes plugins in registration order. When one fails, the
// ones already started are closed again before the error is returned.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		api := API{Hooks: r.hooks, Log: r.log.Sub(id)}
		if err := r.plugins[id].Init(ctx, api); err != nil {
			r.closeStarted()
			return fmt.Errorf("init plugin %s: %w", id, err)
		}
		r.started = append(r.started, id)
		r.log.Info().Str("id", id).Msg("plugin started")
	}
	return nil
}

// CloseAll shuts down started plugins in reverse order.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeStarted()
}

func (r *Registry) closeStarted() {
	for i := len(r.started) - 1; i >= 0; i-- {
		id := r.started[i]
		if err := r.plugins[id].Close(); err != nil {
			r.log.Error().Err(err).Str("id", id).Msg("plugin close error")
		}
	}
	r.started = nil
}

// List returns registered plugin IDs in registration order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
