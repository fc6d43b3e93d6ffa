package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/soyeahso/oagate/internal/hooks"
	"github.com/soyeahso/oagate/internal/message"
	"github.com/soyeahso/oagate/internal/reply"
	"github.com/soyeahso/oagate/internal/router"
	"github.com/soyeahso/oagate/internal/signature"
)

const (
	contentTypeXML = "application/xml; charset=utf-8"
	handshakeFail  = "error signature"
)

// handleWebhook serves both the URL-verification handshake and message
// delivery.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get(requestIDHeader)
	log := s.log.With("request_id", reqID)

	if !s.authLimiter.allow(r.RemoteAddr) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed signature checks")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	query := r.URL.Query()
	in, err := signature.FromQuery(query, s.cfg.Account.Token)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting webhook request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	valid := verify(in)

	if echostr := query.Get("echostr"); echostr != "" {
		s.handshake(w, r, valid, echostr, reqID)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !valid {
		s.rejectSignature(r, reqID, "message")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Webhook.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "reading body failed", http.StatusBadRequest)
		return
	}

	msg, err := message.Parse(body)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(body)).Msg("rejecting malformed message")
		http.Error(w, "malformed message", http.StatusBadRequest)
		return
	}

	log.Debug().
		Str("from", msg.FromUser).
		Str("route", msg.Route()).
		Str("msg_id", msg.MsgID).
		Msg("message received")
	s.emit(r.Context(), hooks.EventMessageReceived, map[string]any{
		"request_id": reqID,
		"from":       msg.FromUser,
		"to":         msg.ToUser,
		"msg_type":   msg.RawType,
		"event":      msg.RawEvent,
		"msg_id":     msg.MsgID,
		"route":      msg.Route(),
	})

	composer := reply.NewComposer(msg.FromUser, msg.ToUser, s.now)
	req := router.NewRequest(r.Context(), msg, composer, log)
	if err := s.router.Dispatch(req); err != nil {
		log.Error().Err(err).Str("route", msg.Route()).Msg("handler failed, sending partial reply")
	}

	kind := composer.Kind()
	out, err := composer.Flush()
	if err != nil {
		log.Error().Err(err).Msg("composing reply")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", contentTypeXML)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		log.Warn().Err(err).Msg("writing reply")
		return
	}
	s.emit(r.Context(), hooks.EventReplySent, map[string]any{
		"request_id": reqID,
		"to":         msg.FromUser,
		"msg_type":   kind,
		"bytes":      len(out),
	})
}

func (s *Server) handshake(w http.ResponseWriter, r *http.Request, valid bool, echostr, reqID string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !valid {
		s.rejectSignature(r, reqID, "handshake")
		io.WriteString(w, handshakeFail)
		return
	}
	s.log.Info().Str("remote", r.RemoteAddr).Msg("webhook handshake verified")
	io.WriteString(w, echostr)
}

func (s *Server) rejectSignature(r *http.Request, reqID, stage string) {
	s.authLimiter.recordFailure(r.RemoteAddr)
	s.log.Warn().
		Str("request_id", reqID).
		Str("remote", r.RemoteAddr).
		Str("stage", stage).
		Msg("signature mismatch")
	s.emit(r.Context(), hooks.EventSignatureRejected, map[string]any{
		"request_id": reqID,
		"remote":     hostOf(r.RemoteAddr),
		"stage":      stage,
	})
}
