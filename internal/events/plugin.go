package events

import (
	"context"

	"github.com/soyeahso/oagate/internal/plugin"
)

// PluginOptions configures the forwarding plugin.
type PluginOptions struct {
	URL      string
	Exchange string
	Prefix   string
	// Events limits forwarding to these hook events. Empty means all.
	Events []string
	// Dial overrides the broker connection, mainly for tests.
	Dial func(api plugin.API) (Publisher, error)
}

// Plugin forwards hook events to the broker for the lifetime of the
// gateway. A broker that cannot be reached at Init disables forwarding
// instead of failing startup.
type Plugin struct {
	opts PluginOptions
	pub  Publisher
}

// NewPlugin creates the forwarding plugin.
func NewPlugin(opts PluginOptions) *Plugin {
	if opts.Dial == nil {
		opts.Dial = func(api plugin.API) (Publisher, error) {
			return NewAMQPPublisher(opts.URL, opts.Exchange, api.Log)
		}
	}
	return &Plugin{opts: opts}
}

func (p *Plugin) ID() string { return "events" }

func (p *Plugin) Init(_ context.Context, api plugin.API) error {
	pub, err := p.opts.Dial(api)
	if err != nil {
		api.Log.Warn().Err(err).Msg("event broker unreachable, forwarding disabled")
		p.pub = NewNopPublisher(api.Log)
		return nil
	}
	p.pub = pub
	NewForwarder(pub, p.opts.Prefix).Attach(api.Hooks, p.opts.Events...)
	return nil
}

func (p *Plugin) Close() error {
	if p.pub == nil {
		return nil
	}
	return p.pub.Close()
}
