package sandbox

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/fjod/storefront/internal/domain"
)

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
	RefreshToken string `json:"refresh_token"`
}

// Token issues visitor tokens for the anonymous grant, member tokens for the
// authorization_code grant and renews either with the refresh_token grant.
func (s *Server) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if !s.allowedClient(req.ClientID) {
		writeError(w, http.StatusBadRequest, "unknown client", CodeInvalidClient)
		return
	}

	var (
		subject string
		role    domain.TokenRole
	)
	switch req.GrantType {
	case "anonymous":
		subject, role = "visitor:"+uuid.NewString(), domain.RoleVisitor
	case "authorization_code":
		memberID, err := s.codes.Redeem(req.Code, req.ClientID, req.RedirectURI, req.CodeVerifier)
		if err != nil {
			writeError(w, http.StatusBadRequest, "authorization code is invalid or expired", CodeInvalidGrant)
			return
		}
		subject, role = memberID, domain.RoleMember
	case "refresh_token":
		claims, err := s.tokens.ParseRefresh(req.RefreshToken)
		if err != nil || claims.ClientID != req.ClientID {
			writeError(w, http.StatusBadRequest, "refresh token is invalid or expired", CodeInvalidGrant)
			return
		}
		subject, role = claims.Subject, claims.Role
	default:
		writeError(w, http.StatusBadRequest, "unsupported grant type", CodeUnsupportedGrantType)
		return
	}

	tokens, err := s.tokens.Issue(subject, role, req.ClientID)
	if err != nil {
		internalError(r.Context(), w, "issue tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

type loginRequest struct {
	ClientID            string `json:"client_id"`
	State               string `json:"state"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
	RedirectURI         string `json:"redirect_uri"`
}

type redirectResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// LoginRedirect returns the sandbox's authorize URL for a PKCE login.
func (s *Server) LoginRedirect(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if !s.allowedClient(req.ClientID) {
		writeError(w, http.StatusBadRequest, "unknown client", CodeInvalidClient)
		return
	}
	if req.State == "" || req.CodeChallenge == "" || req.CodeChallengeMethod != "S256" {
		writeError(w, http.StatusBadRequest, "state and an S256 code challenge are required", "")
		return
	}
	if !absoluteHTTP(req.RedirectURI) {
		writeError(w, http.StatusBadRequest, "redirect_uri must be an absolute http(s) url", "")
		return
	}

	q := url.Values{}
	q.Set("client_id", req.ClientID)
	q.Set("state", req.State)
	q.Set("code_challenge", req.CodeChallenge)
	q.Set("redirect_uri", req.RedirectURI)
	writeJSON(w, http.StatusOK, redirectResponse{RedirectURL: s.url("/oauth/authorize?" + q.Encode())})
}

// Authorize signs the member named by ?email (or the demo member) in without
// a login form and redirects back with a code.
func (s *Server) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	if !s.allowedClient(clientID) || !absoluteHTTP(redirectURI) || q.Get("code_challenge") == "" {
		writeError(w, http.StatusBadRequest, "invalid authorization request", CodeInvalidClient)
		return
	}

	member := s.members.SignIn(q.Get("email"))
	code := s.codes.Issue(AuthCode{
		ClientID:      clientID,
		RedirectURI:   redirectURI,
		CodeChallenge: q.Get("code_challenge"),
		MemberID:      member.ID,
	})

	target, _ := url.Parse(redirectURI)
	back := target.Query()
	back.Set("code", code)
	back.Set("state", q.Get("state"))
	target.RawQuery = back.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

type logoutRequest struct {
	ClientID    string `json:"client_id"`
	PostFlowURL string `json:"post_flow_url"`
}

func (s *Server) LogoutRedirect(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if !s.allowedClient(req.ClientID) {
		writeError(w, http.StatusBadRequest, "unknown client", CodeInvalidClient)
		return
	}
	q := url.Values{}
	q.Set("post_flow_url", req.PostFlowURL)
	writeJSON(w, http.StatusOK, redirectResponse{RedirectURL: s.url("/oauth/logout?" + q.Encode())})
}

// Logout has no server-side session to end; it only sends the browser back.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("post_flow_url")
	local := strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//")
	if !absoluteHTTP(target) && !local {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) CurrentMember(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims.Role != domain.RoleMember {
		writeError(w, http.StatusNotFound, "visitors have no member profile", "")
		return
	}
	member, ok := s.members.Get(claims.Subject)
	if !ok {
		writeError(w, http.StatusNotFound, "member not found", "")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func absoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
