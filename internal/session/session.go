// Package session keeps the per-browser state of the storefront: platform
// tokens, the query cache and everything built on top of it.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/backinstock"
	"github.com/fjod/storefront/internal/cartsync"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/media"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/querycache"
	"github.com/fjod/storefront/internal/reviews"
)

// Session is one shopper's state. It lives until it has been idle for the
// registry's expiry.
type Session struct {
	ID     string
	Tokens domain.Tokens
	Client commerce.Client

	Cache         *querycache.Cache
	Notifications *notify.Queue
	Cart          *cartsync.Synchronizer
	Reviews       *reviews.Loader
	ReviewCreator *reviews.Creator
	Attachments   *media.Attachments
	Checkout      *checkout.Flow
	BackInStock   *backinstock.Service

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// close abandons pending Clear retries and drops cached data once in-flight
// cart calls have settled.
func (s *Session) close() {
	if s.Cart != nil {
		s.Cart.Stop()
		s.Cart.Wait()
	}
	s.Cache.Clear()
}

// IDFor derives the session id from the tokens that authenticate it.
func IDFor(tokens domain.Tokens) string {
	sum := sha256.Sum256([]byte(tokens.AccessToken + "\x00" + tokens.RefreshToken))
	return hex.EncodeToString(sum[:16])
}

// Factory builds the session for tokens.
type Factory func(id string, tokens domain.Tokens) *Session

// NewFactory wires a session around a client bound to its tokens. issuer
// hands out media upload URLs and callbackURL is where logins return.
func NewFactory(bind func(domain.Tokens) commerce.Client, issuer media.URLIssuer, callbackURL string, opts ...cartsync.Option) Factory {
	return func(id string, tokens domain.Tokens) *Session {
		client := bind(tokens)
		cache := querycache.New()
		queue := notify.NewQueue(0)
		return &Session{
			ID:            id,
			Tokens:        tokens,
			Client:        client,
			Cache:         cache,
			Notifications: queue,
			Cart:          cartsync.New(cache, client, queue, opts...),
			Reviews:       reviews.NewLoader(cache, client),
			ReviewCreator: reviews.NewCreator(client, queue),
			Attachments:   media.NewAttachments(issuer, queue),
			Checkout:      checkout.NewFlow(client, queue, callbackURL),
			BackInStock:   backinstock.NewService(client, queue),
		}
	}
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
