package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fjod/storefront/internal/domain"
)

const (
	tokenIssuer = "commerce-sandbox"

	accessAudience  = "access"
	refreshAudience = "refresh"

	// RefreshTokenTTL outlives the storefront's 14 day session cookie.
	RefreshTokenTTL = 30 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid access token")

// Claims is the payload of a sandbox access token. Subject owns the cart.
type Claims struct {
	Role     domain.TokenRole `json:"role"`
	ClientID string           `json:"client_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 access and refresh tokens. The audience tells them
// apart.
type TokenIssuer struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, refreshTTL: RefreshTokenTTL, now: time.Now}
}

func (i *TokenIssuer) Issue(subject string, role domain.TokenRole, clientID string) (domain.Tokens, error) {
	now := i.now()
	expires := now.Add(i.ttl)

	access, err := i.sign(subject, role, clientID, accessAudience, now, expires)
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(subject, role, clientID, refreshAudience, now, now.Add(i.refreshTTL))
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expires.UTC(),
		Role:         role,
	}, nil
}

func (i *TokenIssuer) sign(subject string, role domain.TokenRole, clientID, audience string, now, expires time.Time) (string, error) {
	claims := Claims{
		Role:     role,
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse validates an access token.
func (i *TokenIssuer) Parse(raw string) (*Claims, error) {
	return i.parse(raw, accessAudience)
}

// ParseRefresh validates a refresh token. Access tokens are rejected.
func (i *TokenIssuer) ParseRefresh(raw string) (*Claims, error) {
	return i.parse(raw, refreshAudience)
}

func (i *TokenIssuer) parse(raw, audience string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
