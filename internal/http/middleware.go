package http

import (
	"net/http"

	"github.com/fjod/storefront/internal/session"
)

// sessionFrom returns the caller's session or answers 401 when the session
// middleware did not run.
func sessionFrom(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return nil, false
	}
	return s, true
}
