package router

import (
	"sort"
	"sync"

	"github.com/soyeahso/oagate/internal/logging"
)

// Registry maps namespace names to handler sets.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]Handlers
	log  *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		sets: make(map[string]Handlers),
		log:  log.Sub("handlers"),
	}
}

// Register adds or replaces the handler set for ns.
func (r *Registry) Register(ns string, h Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[ns] = h
	r.log.Debug().Str("namespace", ns).Msg("handler set registered")
}

// Lookup returns the handler set for ns. Unknown namespaces yield an empty
// set, which accepts every message without replying.
func (r *Registry) Lookup(ns string) (Handlers, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sets[ns]
	return h, ok
}

// Namespaces returns the registered names in sorted order.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sets))
	for ns := range r.sets {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}
