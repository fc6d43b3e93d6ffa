package handlers

import (
	"fmt"

	"github.com/soyeahso/oagate/internal/reply"
	"github.com/soyeahso/oagate/internal/router"
)

// Echo returns a handler set that mirrors what it receives. It is meant
// for wiring checks against a test account.
func Echo(d Deps) router.Handlers {
	h := Default(d)
	h.OnText = func(r *router.Request, content string) {
		r.Text(content)
	}
	h.OnImage = func(r *router.Request, _, mediaID string) {
		if err := r.Reply.SetRich(reply.Image{MediaID: mediaID}); err != nil {
			r.Log.Warn().Err(err).Msg("echoing image")
		}
	}
	h.OnVoice = func(r *router.Request, mediaID, _ string) {
		if err := r.Reply.SetRich(reply.Voice{MediaID: mediaID}); err != nil {
			r.Log.Warn().Err(err).Msg("echoing voice")
		}
	}
	h.OnLocation = func(r *router.Request, label string, x, y float64, scale int) {
		r.Text(fmt.Sprintf("%s (%.6f, %.6f) zoom %d", label, x, y, scale))
	}
	h.OnLink = func(r *router.Request, url, title, description string) {
		r.Reply.AddArticle(reply.Article{Title: title, Description: description, URL: url})
		if err := r.Reply.SendNews(); err != nil {
			r.Log.Warn().Err(err).Msg("echoing link")
		}
	}
	h.OnClick = func(r *router.Request, menuKey string) {
		r.Text("menu: " + menuKey)
	}
	h.OnUnknownMessageType = func(r *router.Request, rawType string) {
		r.Text("unsupported message type: " + rawType)
	}
	return h
}
