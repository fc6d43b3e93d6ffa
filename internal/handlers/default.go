package handlers

import (
	"context"

	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/message"
	"github.com/soyeahso/oagate/internal/router"
)

// Default returns the handler set that keeps follower bookkeeping and
// greets new subscribers.
func Default(d Deps) router.Handlers {
	d.defaults()
	log := d.Log.Sub("handlers.default")

	return router.Handlers{
		OnStart: func(r *router.Request, userID string) {
			if d.Subscribers == nil {
				return
			}
			switch r.Message.Event {
			case message.EventSubscribe, message.EventUnsubscribe:
				return
			}
			if err := d.Subscribers.Touch(r.Context(), d.Account, userID, d.Now()); err != nil {
				log.Warn().Err(err).Str("user", userID).Msg("recording activity")
			}
		},
		OnSubscribe: func(r *router.Request, userID, eventKey string) {
			scene := SceneFromEventKey(eventKey)
			if d.Subscribers != nil {
				if err := d.Subscribers.Subscribe(r.Context(), d.Account, userID, scene, d.Now()); err != nil {
					log.Error().Err(err).Str("user", userID).Msg("recording subscribe")
				}
			}
			if d.Hooks != nil {
				d.Hooks.EmitAsync(context.WithoutCancel(r.Context()), hooks.EventSubscribed, map[string]any{
					"account": d.Account,
					"open_id": userID,
					"scene":   scene,
				})
			}
			if d.Welcome != "" {
				r.Text(d.Welcome)
			}
		},
		OnUnsubscribe: func(r *router.Request, userID string) {
			if d.Subscribers != nil {
				if err := d.Subscribers.Unsubscribe(r.Context(), d.Account, userID, d.Now()); err != nil {
					log.Error().Err(err).Str("user", userID).Msg("recording unsubscribe")
				}
			}
			if d.Hooks != nil {
				d.Hooks.EmitAsync(context.WithoutCancel(r.Context()), hooks.EventUnsubscribed, map[string]any{
					"account": d.Account,
					"open_id": userID,
				})
			}
		},
		OnScan: func(r *router.Request, sceneValue, _ string) {
			log.Info().Str("user", r.Message.FromUser).Str("scene", sceneValue).Msg("qr scanned by follower")
		},
		OnUnknownEventType: func(r *router.Request, rawEvent string) {
			log.Debug().Str("event", rawEvent).Msg("unhandled event")
		},
		OnUnknownMessageType: func(r *router.Request, rawType string) {
			log.Debug().Str("type", rawType).Msg("unhandled message type")
		},
	}
}
