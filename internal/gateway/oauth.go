package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/af-corp/showcase-gateway/internal/httputil"
	"github.com/af-corp/showcase-gateway/internal/social"
)

const (
	oauthCallbackPath = "/api/instagram/callback"
	oauthStateCookie  = "ig_oauth_state"
)

// InstagramAuthURL handles GET /api/instagram/auth-url. The state it embeds is
// also set as a cookie scoped to the callback, which checks the two match.
func (h *Handler) InstagramAuthURL(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	if h.deps.OAuth == nil || !h.deps.OAuth.Configured() {
		httputil.WriteServiceUnavailableError(w, reqID, "Instagram App ID not configured")
		return
	}

	state := social.NewState()
	authURL, err := h.deps.OAuth.AuthCodeURL(h.deps.OAuth.RedirectURL(callbackURL(r)), state)
	if err != nil {
		httputil.WriteInternalError(w, reqID, "Failed to generate auth URL: "+err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     oauthCallbackPath,
		MaxAge:   600,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"auth_url": authURL,
		"message":  "Instagram authorization URL generated",
	})
}

// InstagramCallback handles GET /api/instagram/callback, exchanging the
// authorization code for a user access token.
func (h *Handler) InstagramCallback(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	if h.deps.OAuth == nil || !h.deps.OAuth.Configured() {
		httputil.WriteServiceUnavailableError(w, reqID, "Instagram App ID not configured")
		return
	}

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		msg := q.Get("error_description")
		if msg == "" {
			msg = reason
		}
		httputil.WriteBadRequestError(w, reqID, "Instagram authorization denied: "+msg)
		return
	}
	code := q.Get("code")
	if code == "" {
		httputil.WriteBadRequestError(w, reqID, "No authorization code received")
		return
	}
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		httputil.WriteBadRequestError(w, reqID, "Invalid OAuth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: oauthCallbackPath, MaxAge: -1})

	token, err := h.deps.OAuth.Exchange(r.Context(), code, h.deps.OAuth.RedirectURL(callbackURL(r)))
	if err != nil {
		slog.Error("instagram token exchange failed", "request_id", reqID, "error", err)
		httputil.WriteError(w, reqID, http.StatusBadGateway, "upstream_error", "instagram_error", err.Error())
		return
	}
	slog.Info("instagram user authorized", "request_id", reqID)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"access_token": token,
		"message":      "Instagram authorization successful! You can now post to Instagram.",
	})
}

// callbackURL derives the callback from the request's own origin.
func callbackURL(r *http.Request) string {
	scheme := "http"
	if isHTTPS(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + oauthCallbackPath
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
