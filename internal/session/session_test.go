package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bareFactory(id string, tokens domain.Tokens) *Session {
	return &Session{ID: id, Tokens: tokens, Cache: querycache.New()}
}

// stubClient satisfies commerce.Client for wiring tests; only GetCart is
// callable.
type stubClient struct {
	commerce.Client
	cart *domain.Cart
}

func (s stubClient) GetCart(context.Context) (*domain.Cart, error) {
	return s.cart, nil
}

type mockVisitors struct {
	m          sync.RWMutex
	calls      int
	err        error
	refreshed  []string
	refreshErr error
}

func (v *mockVisitors) RefreshTokens(_ context.Context, refreshToken string) (domain.Tokens, error) {
	v.m.Lock()
	defer v.m.Unlock()
	v.refreshed = append(v.refreshed, refreshToken)
	if v.refreshErr != nil {
		return domain.Tokens{}, v.refreshErr
	}
	return domain.Tokens{
		AccessToken:  "renewed-" + refreshToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (v *mockVisitors) Calls() (generated int, refreshed []string) {
	v.m.RLock()
	defer v.m.RUnlock()
	return v.calls, append([]string(nil), v.refreshed...)
}

func (v *mockVisitors) GenerateVisitorTokens(context.Context) (domain.Tokens, error) {
	v.m.Lock()
	defer v.m.Unlock()
	v.calls++
	if v.err != nil {
		return domain.Tokens{}, v.err
	}
	return domain.Tokens{AccessToken: "visitor-token", Role: domain.RoleVisitor}, nil
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCookies_SessionRoundTrip(t *testing.T) {
	c := Cookies{Secure: true}
	rec := httptest.NewRecorder()
	tokens := domain.Tokens{AccessToken: "a", RefreshToken: "r", Role: domain.RoleMember}
	require.NoError(t, c.SetSession(rec, tokens))

	ck := cookieFrom(t, rec, SessionCookie)
	require.NotNil(t, ck)
	assert.True(t, ck.Secure)
	assert.Equal(t, int(SessionMaxAge.Seconds()), ck.MaxAge)
	assert.Equal(t, 14*24*3600, ck.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(ck)
	got, present := c.Session(req)
	assert.True(t, present)
	assert.Equal(t, tokens.AccessToken, got.AccessToken)
	assert.Equal(t, domain.RoleMember, got.Role)
}

func TestCookies_MalformedSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "%%%not-base64"})

	got, present := Cookies{}.Session(req)
	assert.True(t, present)
	assert.True(t, got.Empty())

	_, present = Cookies{}.Session(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, present)
}

func TestCookies_OAuthDataIsTakenOnce(t *testing.T) {
	c := Cookies{}
	rec := httptest.NewRecorder()
	data := domain.OAuthData{State: "s", CodeVerifier: "v", OriginalURI: "/shop"}
	require.NoError(t, c.SetOAuthData(rec, data))
	ck := cookieFrom(t, rec, OAuthCookie)
	require.NotNil(t, ck)
	assert.Equal(t, 600, ck.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback/wix", nil)
	req.AddCookie(ck)
	rec = httptest.NewRecorder()
	got, ok := c.TakeOAuthData(rec, req)
	require.True(t, ok)
	assert.Equal(t, data, got)

	deleted := cookieFrom(t, rec, OAuthCookie)
	require.NotNil(t, deleted)
	assert.Negative(t, deleted.MaxAge)
}

func TestRegistry_GetReusesAndExpires(t *testing.T) {
	reg := NewRegistry(bareFactory, time.Minute, time.Hour)
	defer reg.Close()

	now := time.Now()
	reg.now = func() time.Time { return now }

	tokens := domain.Tokens{AccessToken: "a"}
	s1 := reg.Get(tokens)
	assert.Same(t, s1, reg.Get(tokens))
	assert.NotSame(t, s1, reg.Get(domain.Tokens{AccessToken: "b"}))
	assert.Equal(t, 2, reg.Len())

	_, ok := reg.Lookup(s1.ID)
	assert.True(t, ok)

	now = now.Add(30 * time.Second)
	reg.Get(tokens)
	now = now.Add(45 * time.Second)
	reg.expire()

	assert.Equal(t, 1, reg.Len())
	_, ok = reg.Lookup(IDFor(tokens))
	assert.True(t, ok)
}

func TestRegistry_CleanupLoop(t *testing.T) {
	reg := NewRegistry(bareFactory, time.Millisecond, 5*time.Millisecond)
	defer reg.Close()

	reg.Get(domain.Tokens{AccessToken: "a"})
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistry_ByCart(t *testing.T) {
	factory := NewFactory(func(domain.Tokens) commerce.Client {
		return stubClient{cart: &domain.Cart{ID: "cart-7"}}
	}, nil, "https://shop/callback")
	reg := NewRegistry(factory, 0, 0)
	defer reg.Close()

	s := reg.Get(domain.Tokens{AccessToken: "a"})
	reg.Get(domain.Tokens{AccessToken: "b"})
	_, err := s.Cart.Cart(context.Background())
	require.NoError(t, err)

	found := reg.ByCart("cart-7")
	require.Len(t, found, 1)
	assert.Same(t, s, found[0])
	assert.Empty(t, reg.ByCart("other"))
}

func TestMiddleware(t *testing.T) {
	reg := NewRegistry(bareFactory, 0, 0)
	defer reg.Close()
	visitors := &mockVisitors{}

	var seen *Session
	h := Middleware(reg, visitors, Cookies{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = s
	}))

	t.Run("no cookie issues visitor tokens", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, 1, visitors.calls)
		require.NotNil(t, cookieFrom(t, rec, SessionCookie))
		require.NotNil(t, seen)
		assert.Equal(t, "visitor-token", seen.Tokens.AccessToken)
	})

	t.Run("existing cookie is reused", func(t *testing.T) {
		set := httptest.NewRecorder()
		require.NoError(t, Cookies{}.SetSession(set, domain.Tokens{AccessToken: "member"}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookieFrom(t, set, SessionCookie))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, 1, visitors.calls)
		assert.Nil(t, cookieFrom(t, rec, SessionCookie))
		assert.Equal(t, "member", seen.Tokens.AccessToken)
	})

	t.Run("token failure", func(t *testing.T) {
		failing := Middleware(reg, &mockVisitors{err: errors.New("down")}, Cookies{})(http.NotFoundHandler())
		rec := httptest.NewRecorder()
		failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMiddleware_ExpiredTokens(t *testing.T) {
	reg := NewRegistry(bareFactory, 0, 0)
	defer reg.Close()

	expired := domain.Tokens{
		AccessToken:  "old",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-48 * time.Hour),
		Role:         domain.RoleMember,
	}
	serve := func(t *testing.T, source TokenSource) (*httptest.ResponseRecorder, *Session) {
		t.Helper()
		set := httptest.NewRecorder()
		require.NoError(t, Cookies{}.SetSession(set, expired))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookieFrom(t, set, SessionCookie))

		var seen *Session
		h := Middleware(reg, source, Cookies{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = FromContext(r.Context())
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.NotNil(t, seen)
		return rec, seen
	}

	t.Run("renewed with the refresh token", func(t *testing.T) {
		source := &mockVisitors{}
		rec, s := serve(t, source)

		generated, refreshed := source.Calls()
		assert.Equal(t, 0, generated)
		assert.Equal(t, []string{"refresh-1"}, refreshed)
		assert.Equal(t, "renewed-refresh-1", s.Tokens.AccessToken)
		assert.Equal(t, domain.RoleMember, s.Tokens.Role)
		assert.False(t, s.Tokens.Expired(time.Now()))

		ck := cookieFrom(t, rec, SessionCookie)
		require.NotNil(t, ck, "cookie is rewritten")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(ck)
		stored, _ := Cookies{}.Session(req)
		assert.Equal(t, "renewed-refresh-1", stored.AccessToken)
	})

	t.Run("failed renewal falls back to a visitor", func(t *testing.T) {
		source := &mockVisitors{refreshErr: errors.New("invalid grant")}
		rec, s := serve(t, source)

		generated, refreshed := source.Calls()
		assert.Equal(t, 1, generated)
		assert.Len(t, refreshed, 1)
		assert.Equal(t, "visitor-token", s.Tokens.AccessToken)
		assert.NotNil(t, cookieFrom(t, rec, SessionCookie))
	})
}

func TestTokens_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, domain.Tokens{AccessToken: "a"}.Expired(now), "no expiry")
	assert.False(t, domain.Tokens{AccessToken: "a", ExpiresAt: now.Add(time.Hour)}.Expired(now))
	assert.True(t, domain.Tokens{AccessToken: "a", ExpiresAt: now.Add(30 * time.Second)}.Expired(now), "inside renew window")
	assert.True(t, domain.Tokens{AccessToken: "a", ExpiresAt: now.Add(-time.Hour)}.Expired(now))
}
