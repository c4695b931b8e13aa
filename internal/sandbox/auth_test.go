package sandbox

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/storefront/internal/domain"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	tokens, err := issuer.Issue("member-1", domain.RoleMember, "storefront")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, domain.RoleMember, tokens.Role)

	claims, err := issuer.Parse(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "member-1", claims.Subject)
	assert.Equal(t, domain.RoleMember, claims.Role)
	assert.Equal(t, "storefront", claims.ClientID)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	tokens, err := issuer.Issue("visitor:1", domain.RoleVisitor, "storefront")
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		_, err := NewTokenIssuer("other", time.Hour).Parse(tokens.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokenIssuer("secret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(tokens.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := issuer.Parse(tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
		_, err = issuer.ParseRefresh(tokens.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenIssuer_RefreshOutlivesAccess(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	tokens, err := issuer.Issue("visitor:1", domain.RoleVisitor, "storefront")
	require.NoError(t, err)

	later := NewTokenIssuer("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	_, err = later.Parse(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := later.ParseRefresh(tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "visitor:1", claims.Subject)
	assert.Equal(t, domain.RoleVisitor, claims.Role)

	expired := NewTokenIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(RefreshTokenTTL + time.Hour) }
	_, err = expired.ParseRefresh(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestAuthCodes_Redeem(t *testing.T) {
	codes := NewAuthCodes(time.Minute)
	t.Cleanup(func() { _ = codes.Close() })

	grant := AuthCode{
		ClientID:      "storefront",
		RedirectURI:   "http://shop/callback",
		CodeChallenge: challengeFor("verifier"),
		MemberID:      "member-1",
	}

	code := codes.Issue(grant)
	member, err := codes.Redeem(code, "storefront", "http://shop/callback", "verifier")
	require.NoError(t, err)
	assert.Equal(t, "member-1", member)

	_, err = codes.Redeem(code, "storefront", "http://shop/callback", "verifier")
	assert.ErrorIs(t, err, ErrInvalidGrant, "codes are single use")
}

func TestAuthCodes_RejectsMismatch(t *testing.T) {
	codes := NewAuthCodes(time.Minute)
	t.Cleanup(func() { _ = codes.Close() })

	grant := AuthCode{
		ClientID:      "storefront",
		RedirectURI:   "http://shop/callback",
		CodeChallenge: challengeFor("verifier"),
		MemberID:      "member-1",
	}

	tests := []struct {
		name, client, redirect, verifier string
	}{
		{"verifier", "storefront", "http://shop/callback", "wrong"},
		{"client", "other", "http://shop/callback", "verifier"},
		{"redirect", "storefront", "http://evil/callback", "verifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := codes.Issue(grant)
			_, err := codes.Redeem(code, tt.client, tt.redirect, tt.verifier)
			assert.ErrorIs(t, err, ErrInvalidGrant)
		})
	}
	assert.Zero(t, codes.Len())
}

func TestAuthCodes_Expire(t *testing.T) {
	codes := NewAuthCodes(time.Minute)
	t.Cleanup(func() { _ = codes.Close() })

	code := codes.Issue(AuthCode{ClientID: "storefront", CodeChallenge: challengeFor("v")})
	codes.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	codes.expire()
	assert.Zero(t, codes.Len())

	_, err := codes.Redeem(code, "storefront", "", "v")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestMembers_SignIn(t *testing.T) {
	m := NewMembers()

	demo := m.SignIn("")
	assert.Equal(t, DemoMemberEmail, demo.LoginEmail)
	assert.Equal(t, "demo", demo.Nickname)

	again := m.SignIn("  DEMO@example.com ")
	assert.Equal(t, demo.ID, again.ID)

	got, ok := m.Get(demo.ID)
	require.True(t, ok)
	assert.Equal(t, demo, got)
}

func TestCursor_RoundTrip(t *testing.T) {
	c := pageCursor{CreatedAt: time.UnixMilli(1717200000123).UTC(), ID: "rev:1"}

	got, err := decodeCursor(c.encode())
	require.NoError(t, err)
	assert.Equal(t, c, got)

	for _, bad := range []string{"!!", "bm9jb2xvbg", "eDp5"} {
		_, err := decodeCursor(bad)
		assert.ErrorIs(t, err, ErrInvalidCursor, bad)
	}
}
