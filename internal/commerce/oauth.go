package commerce

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
)

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	Code         string `json:"code,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type redirectResponse struct {
	RedirectURL string `json:"redirect_url"`
}

func (c *HTTPClient) GenerateVisitorTokens(ctx context.Context) (domain.Tokens, error) {
	var tokens domain.Tokens
	in := tokenRequest{GrantType: "anonymous", ClientID: c.clientID}
	if err := c.do(ctx, http.MethodPost, "/oauth/token", nil, in, &tokens); err != nil {
		return domain.Tokens{}, err
	}
	if tokens.Role == "" {
		tokens.Role = domain.RoleVisitor
	}
	return tokens, nil
}

// GenerateOAuthData creates the PKCE handshake state locally; nothing is sent
// to the platform until LoginURL.
func (c *HTTPClient) GenerateOAuthData(redirectURI, originalURI string) (domain.OAuthData, error) {
	verifier := make([]byte, 32)
	if _, err := rand.Read(verifier); err != nil {
		return domain.OAuthData{}, fmt.Errorf("generate code verifier: %w", err)
	}
	return domain.OAuthData{
		State:        uuid.NewString(),
		CodeVerifier: base64.RawURLEncoding.EncodeToString(verifier),
		RedirectURI:  redirectURI,
		OriginalURI:  originalURI,
	}, nil
}

// CodeChallenge is the S256 PKCE challenge for a verifier.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (c *HTTPClient) LoginURL(ctx context.Context, data domain.OAuthData) (string, error) {
	in := map[string]string{
		"client_id":             c.clientID,
		"state":                 data.State,
		"code_challenge":        CodeChallenge(data.CodeVerifier),
		"code_challenge_method": "S256",
		"redirect_uri":          data.RedirectURI,
	}
	var out redirectResponse
	if err := c.do(ctx, http.MethodPost, "/v1/redirects/login", nil, in, &out); err != nil {
		return "", err
	}
	return out.RedirectURL, nil
}

func (c *HTTPClient) LogoutURL(ctx context.Context, originalURI string) (string, error) {
	in := map[string]string{"client_id": c.clientID, "post_flow_url": originalURI}
	var out redirectResponse
	if err := c.do(ctx, http.MethodPost, "/v1/redirects/logout", nil, in, &out); err != nil {
		return "", err
	}
	return out.RedirectURL, nil
}

func (c *HTTPClient) MemberTokens(ctx context.Context, code, state string, data domain.OAuthData) (domain.Tokens, error) {
	if state != data.State {
		return domain.Tokens{}, ErrStateMismatch
	}
	in := tokenRequest{
		GrantType:    "authorization_code",
		ClientID:     c.clientID,
		Code:         code,
		CodeVerifier: data.CodeVerifier,
		RedirectURI:  data.RedirectURI,
	}
	var tokens domain.Tokens
	if err := c.do(ctx, http.MethodPost, "/oauth/token", nil, in, &tokens); err != nil {
		return domain.Tokens{}, err
	}
	if tokens.Role == "" {
		tokens.Role = domain.RoleMember
	}
	return tokens, nil
}

// RefreshTokens renews an expired access token. The platform keeps the
// identity, so a visitor keeps its cart and a member stays logged in.
func (c *HTTPClient) RefreshTokens(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	in := tokenRequest{GrantType: "refresh_token", ClientID: c.clientID, RefreshToken: refreshToken}
	var tokens domain.Tokens
	if err := c.do(ctx, http.MethodPost, "/oauth/token", nil, in, &tokens); err != nil {
		return domain.Tokens{}, err
	}
	return tokens, nil
}
