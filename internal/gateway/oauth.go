package gateway

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/soyeahso/oagate/internal/credential"
	"github.com/soyeahso/oagate/internal/platform"
)

// oauthError is the JSON body returned when authorization fails.
type oauthError struct {
	Code    int    `json:"errcode"`
	Message string `json:"errmsg"`
}

// handleOAuthCallback redirects browsers without a code to the
// authorization page and answers with the user profile once the platform
// sends them back with one.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		target := s.oauth.AuthURL(s.callbackURL(r), query.Get("state"), s.cfg.OAuth.Scope)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	profile, err := s.oauth.UserInfo(r.Context(), code, s.cfg.OAuth.Lang)
	if err != nil {
		s.log.Warn().Err(err).Msg("oauth authorization failed")
		var pe *platform.Error
		switch {
		case errors.Is(err, credential.ErrCodeConsumed):
			body := oauthError{Code: -1, Message: err.Error()}
			if errors.As(err, &pe) {
				body = oauthError{Code: pe.Code, Message: pe.Message}
			}
			writeJSON(w, http.StatusGone, body)
		case errors.As(err, &pe):
			writeJSON(w, http.StatusBadGateway, oauthError{Code: pe.Code, Message: pe.Message})
		default:
			writeJSON(w, http.StatusBadGateway, oauthError{Code: -1, Message: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// callbackURL is the URL the platform should send the browser back to:
// the current request without code and state.
func (s *Server) callbackURL(r *http.Request) string {
	q := r.URL.Query()
	q.Del("code")
	q.Del("state")

	u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
	if base := strings.TrimSuffix(s.cfg.Gateway.PublicURL, "/"); base != "" {
		return base + u.String()
	}
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	u.Host = r.Host
	return u.String()
}
