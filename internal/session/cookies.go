package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

const (
	SessionCookie = "wix_session"
	OAuthCookie   = "wix_oauth_data"

	SessionMaxAge = 14 * 24 * time.Hour
	OAuthMaxAge   = 10 * time.Minute
)

// Cookies reads and writes the session and login handshake cookies. Values
// are base64url encoded JSON.
type Cookies struct {
	Secure bool
}

func (c Cookies) SetSession(w http.ResponseWriter, tokens domain.Tokens) error {
	return c.set(w, SessionCookie, tokens, SessionMaxAge)
}

// Session returns the tokens in the request's session cookie. present is
// false when there is no cookie; a cookie that does not decode yields empty
// tokens.
func (c Cookies) Session(r *http.Request) (tokens domain.Tokens, present bool) {
	ck, err := r.Cookie(SessionCookie)
	if err != nil || ck.Value == "" {
		return domain.Tokens{}, false
	}
	if err := decode(ck.Value, &tokens); err != nil {
		return domain.Tokens{}, true
	}
	return tokens, true
}

func (c Cookies) SetOAuthData(w http.ResponseWriter, data domain.OAuthData) error {
	return c.set(w, OAuthCookie, data, OAuthMaxAge)
}

// TakeOAuthData reads the handshake cookie and tells the browser to drop
// it. ok is false when the cookie is missing or unreadable.
func (c Cookies) TakeOAuthData(w http.ResponseWriter, r *http.Request) (data domain.OAuthData, ok bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     OAuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	ck, err := r.Cookie(OAuthCookie)
	if err != nil || ck.Value == "" {
		return domain.OAuthData{}, false
	}
	if err := decode(ck.Value, &data); err != nil {
		return domain.OAuthData{}, false
	}
	return data, data.State != ""
}

func (c Cookies) set(w http.ResponseWriter, name string, v any, maxAge time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s cookie: %w", name, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func decode(value string, out any) error {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
