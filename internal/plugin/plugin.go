// Package plugin manages optional gateway extensions that observe the hook
// stream, such as event forwarding. Extensions are registered before the
// server starts and closed after it stops.
package plugin

import (
	"context"

	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/logging"
)

// Plugin is an extension with a start/stop lifecycle.
type Plugin interface {
	// ID returns a unique identifier, e.g. "events".
	ID() string

	// Init subscribes to hooks and acquires resources.
	Init(ctx context.Context, api API) error

	// Close releases what Init acquired.
	Close() error
}

// API is what a plugin receives at Init.
type API struct {
	Hooks *hooks.Manager
	Log   *logging.Logger
}
