package session

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
)

// TokenSource mints anonymous platform tokens and renews expired ones.
type TokenSource interface {
	GenerateVisitorTokens(ctx context.Context) (domain.Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (domain.Tokens, error)
}

// Middleware attaches the caller's session to the request context. Requests
// without usable tokens get fresh visitor tokens in a new session cookie;
// expired tokens are renewed and the cookie rewritten.
func Middleware(reg *Registry, source TokenSource, cookies Cookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tokens, _ := cookies.Session(r)

			renewed, changed, err := ensureTokens(ctx, source, tokens, time.Now())
			if err != nil {
				logger.Printf(ctx, "generate visitor tokens: %v", err)
				http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
				return
			}
			if changed {
				if err := cookies.SetSession(w, renewed); err != nil {
					logger.Printf(ctx, "set session cookie: %v", err)
				}
			}

			s := reg.Get(renewed)
			next.ServeHTTP(w, r.WithContext(NewContext(ctx, s)))
		})
	}
}

// ensureTokens returns tokens usable at now. Expired tokens are refreshed;
// when that fails, or there is nothing to refresh, the caller starts over as
// a visitor.
func ensureTokens(ctx context.Context, source TokenSource, tokens domain.Tokens, now time.Time) (domain.Tokens, bool, error) {
	if !tokens.Empty() && !tokens.Expired(now) {
		return tokens, false, nil
	}

	if !tokens.Empty() && tokens.RefreshToken != "" {
		fresh, err := source.RefreshTokens(ctx, tokens.RefreshToken)
		if err == nil {
			if fresh.Role == "" {
				fresh.Role = tokens.Role
			}
			return fresh, true, nil
		}
		logger.Printf(ctx, "refresh %s tokens: %v", tokens.Role, err)
	}

	fresh, err := source.GenerateVisitorTokens(ctx)
	if err != nil {
		return domain.Tokens{}, false, err
	}
	return fresh, true, nil
}
