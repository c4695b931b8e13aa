package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/session"
)

// AuthHandler finishes and ends member logins. Its responses are plain text
// and redirects, as browsers land on them directly.
type AuthHandler struct {
	auth    commerce.AuthAPI
	cookies session.Cookies
	timeout time.Duration
}

func NewAuthHandler(auth commerce.AuthAPI, cookies session.Cookies, timeout time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies, timeout: timeout}
}

// Callback handles GET /api/auth/callback/wix.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	if q.Get("error") != "" {
		http.Error(w, q.Get("error_description"), http.StatusBadRequest)
		return
	}

	data, ok := h.cookies.TakeOAuthData(w, r)
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" || !ok {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	tokens, err := h.auth.MemberTokens(ctx, code, state, data)
	if err != nil {
		logger.Printf(ctx, "exchange member tokens: %v", err)
		http.Error(w, "Login failed", http.StatusBadRequest)
		return
	}
	if err := h.cookies.SetSession(w, tokens); err != nil {
		logger.Printf(ctx, "set session cookie: %v", err)
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	target := data.OriginalURI
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type LogoutResponseDTO struct {
	URL string `json:"url"`
}

// Logout drops the session cookie and returns where to send the browser so
// the platform ends the member session too.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	original := r.URL.Query().Get("return_to")
	if original == "" {
		original = "/"
	}
	u, err := s.Client.LogoutURL(ctx, original)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: session.SessionCookie, Value: "", Path: "/", MaxAge: -1})
	respondJSON(w, http.StatusOK, LogoutResponseDTO{URL: u})
}
