// Package router dispatches parsed webhook messages to handler sets.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/message"
	"github.com/soyeahso/oagate/internal/reply"
)

// ErrHandlerPanic is returned by Dispatch when a handler panicked.
var ErrHandlerPanic = errors.New("handler panicked")

// Request carries everything a handler needs for one inbound message.
type Request struct {
	ctx     context.Context
	Message *message.IncomingMessage
	Reply   *reply.Composer
	Log     *logging.Logger
}

// NewRequest binds a parsed message and its reply composer to ctx.
func NewRequest(ctx context.Context, msg *message.IncomingMessage, composer *reply.Composer, log *logging.Logger) *Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Request{ctx: ctx, Message: msg, Reply: composer, Log: log}
}

// Context returns the request's context.
func (r *Request) Context() context.Context {
	return r.ctx
}

// Text queues a plain-text reply fragment.
func (r *Request) Text(s string) {
	r.Reply.AppendText(s)
}

// Handlers is one handler set. Every field is optional; a nil field means
// the message is accepted without a reply.
type Handlers struct {
	OnStart func(r *Request, userID string)
	OnEnd   func(r *Request, userID string)

	OnText       func(r *Request, content string)
	OnImage      func(r *Request, picURL, mediaID string)
	OnVoice      func(r *Request, mediaID, format string)
	OnVideo      func(r *Request, mediaID, thumbMediaID string)
	OnShortVideo func(r *Request, mediaID, thumbMediaID string)
	OnLocation   func(r *Request, label string, x, y float64, scale int)
	OnLink       func(r *Request, url, title, description string)
	OnMusic      func(r *Request, url, name, description string)

	OnSubscribe     func(r *Request, userID, eventKey string)
	OnUnsubscribe   func(r *Request, userID string)
	OnClick         func(r *Request, menuKey string)
	OnView          func(r *Request, eventKey string)
	OnScan          func(r *Request, sceneValue, ticket string)
	OnScanCodePush  func(r *Request, eventKey, scanResult string)
	OnScanCode      func(r *Request, eventKey, scanResult string)
	OnLocationEvent func(r *Request, lat, lon, precision float64)

	OnUnknownEventType   func(r *Request, rawEvent string)
	OnUnknownMessageType func(r *Request, rawType string)
}

// Router invokes one handler set for every dispatched request.
type Router struct {
	handlers Handlers
	log      *logging.Logger
}

// New creates a router over h.
func New(h Handlers, log *logging.Logger) *Router {
	return &Router{handlers: h, log: log.Sub("router")}
}

// Dispatch runs OnStart, the single handler matching the message, then
// OnEnd. OnEnd runs even when an earlier step panics. Panics are
// recovered, logged and reported as ErrHandlerPanic.
func (rt *Router) Dispatch(r *Request) error {
	h := &rt.handlers
	user := r.Message.FromUser
	slot := r.Message.Route()

	var errs []error
	if h.OnStart != nil {
		errs = append(errs, rt.call(r, "start", func() { h.OnStart(r, user) }))
	}
	if fn := rt.resolve(r); fn != nil {
		errs = append(errs, rt.call(r, slot, fn))
	} else {
		rt.log.Debug().Str("slot", slot).Msg("no handler for message")
	}
	if h.OnEnd != nil {
		errs = append(errs, rt.call(r, "end", func() { h.OnEnd(r, user) }))
	}
	return errors.Join(errs...)
}

// resolve maps the message to its handler invocation, or nil when the
// slot is unset.
func (rt *Router) resolve(r *Request) func() {
	h := &rt.handlers
	m := r.Message
	f := &m.Fields

	switch m.Kind {
	case message.KindText:
		if h.OnText != nil {
			return func() { h.OnText(r, f.Content) }
		}
	case message.KindImage:
		if h.OnImage != nil {
			return func() { h.OnImage(r, f.PicURL, f.MediaID) }
		}
	case message.KindVoice:
		if h.OnVoice != nil {
			return func() { h.OnVoice(r, f.MediaID, f.Format) }
		}
	case message.KindVideo:
		if h.OnVideo != nil {
			return func() { h.OnVideo(r, f.MediaID, f.ThumbMediaID) }
		}
	case message.KindShortVideo:
		if h.OnShortVideo != nil {
			return func() { h.OnShortVideo(r, f.MediaID, f.ThumbMediaID) }
		}
	case message.KindLocation:
		if h.OnLocation != nil {
			return func() { h.OnLocation(r, f.Label, f.LocationX, f.LocationY, f.Scale) }
		}
	case message.KindLink:
		if h.OnLink != nil {
			return func() { h.OnLink(r, f.URL, f.Title, f.Description) }
		}
	case message.KindMusic:
		if h.OnMusic != nil {
			return func() { h.OnMusic(r, f.MusicURL, f.MusicName, f.MusicDesc) }
		}
	case message.KindEvent:
		return rt.resolveEvent(r)
	default:
		if h.OnUnknownMessageType != nil {
			return func() { h.OnUnknownMessageType(r, m.RawType) }
		}
	}
	return nil
}

func (rt *Router) resolveEvent(r *Request) func() {
	h := &rt.handlers
	m := r.Message
	f := &m.Fields

	switch m.Event {
	case message.EventSubscribe:
		if h.OnSubscribe != nil {
			return func() { h.OnSubscribe(r, m.FromUser, f.EventKey) }
		}
	case message.EventUnsubscribe:
		if h.OnUnsubscribe != nil {
			return func() { h.OnUnsubscribe(r, m.FromUser) }
		}
	case message.EventClick:
		if h.OnClick != nil {
			return func() { h.OnClick(r, f.EventKey) }
		}
	case message.EventView:
		if h.OnView != nil {
			return func() { h.OnView(r, f.EventKey) }
		}
	case message.EventScan:
		if h.OnScan != nil {
			return func() { h.OnScan(r, f.EventKey, f.Ticket) }
		}
	case message.EventScanCodePush:
		if h.OnScanCodePush != nil {
			return func() { h.OnScanCodePush(r, f.EventKey, f.ScanResult) }
		}
	case message.EventScanCodeWait:
		if h.OnScanCode != nil {
			return func() { h.OnScanCode(r, f.EventKey, f.ScanResult) }
		}
	case message.EventLocationReport:
		if h.OnLocationEvent != nil {
			return func() { h.OnLocationEvent(r, f.Latitude, f.Longitude, f.Precision) }
		}
	default:
		if h.OnUnknownEventType != nil {
			return func() { h.OnUnknownEventType(r, m.RawEvent) }
		}
	}
	return nil
}

func (rt *Router) call(r *Request, slot string, fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			rt.log.Error().
				Str("slot", slot).
				Str("from", r.Message.FromUser).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("handler panicked")
			err = fmt.Errorf("%w in %s: %v", ErrHandlerPanic, slot, rec)
		}
	}()
	fn()
	return nil
}
