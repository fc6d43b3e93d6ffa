package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/version"
)

const (
	// DefaultPrefix is prepended to every routing key.
	DefaultPrefix = "oagate"

	publishTimeout = 5 * time.Second
)

// CorrelationKey is the payload field copied into Meta.CorrelationID.
const CorrelationKey = "request_id"

// Forwarder publishes hook events to a broker.
type Forwarder struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

// NewForwarder creates a forwarder. An empty prefix means DefaultPrefix.
func NewForwarder(pub Publisher, prefix string) *Forwarder {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Forwarder{pub: pub, prefix: prefix, now: time.Now}
}

// Key returns the routing key for a hook event.
func (f *Forwarder) Key(event string) string {
	return f.prefix + "." + event
}

// Attach registers the forwarder for the given events, or for every known
// event when none are given.
func (f *Forwarder) Attach(m *hooks.Manager, events ...string) {
	if len(events) == 0 {
		m.OnAll("events.forward", f.handle)
		return
	}
	for _, ev := range events {
		m.On(ev, "events.forward", f.handle)
	}
}

func (f *Forwarder) handle(ctx context.Context, p hooks.Payload) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return f.pub.Publish(ctx, f.Key(p.Event), f.envelope(p))
}

func (f *Forwarder) envelope(p hooks.Payload) Envelope {
	meta := Meta{
		ID:       uuid.NewString(),
		Type:     f.Key(p.Event) + ".v1",
		Time:     f.now().UTC(),
		Producer: "oagate/" + version.Version,
	}
	if id, ok := p.Data[CorrelationKey].(string); ok {
		meta.CorrelationID = id
	}
	return Envelope{Meta: meta, Data: p.Data}
}
