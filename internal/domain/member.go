package domain

import "time"

type TokenRole string

const (
	RoleVisitor TokenRole = "visitor"
	RoleMember  TokenRole = "member"
)

// Tokens is the session blob stored in the session cookie. It is opaque to
// everything except the commerce client.
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Role         TokenRole `json:"role,omitempty"`
}

// Empty reports whether the blob carries no credentials.
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// TokenRenewWindow is how long before ExpiresAt tokens are renewed.
const TokenRenewWindow = time.Minute

// Expired reports whether the access token is due for renewal at now.
// Tokens without an expiry never are.
func (t Tokens) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt.Add(-TokenRenewWindow))
}

// OAuthData is the handshake state kept between the login redirect and the
// callback.
type OAuthData struct {
	State        string `json:"state"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectURI  string `json:"redirectUri"`
	OriginalURI  string `json:"originalUri"`
}

type Member struct {
	ID         string `json:"id"`
	LoginEmail string `json:"login_email"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Nickname   string `json:"nickname,omitempty"`
}

type Order struct {
	ID        string     `json:"id"`
	Number    string     `json:"number"`
	Status    string     `json:"status"`
	LineItems []LineItem `json:"line_items"`
	Total     Money      `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
}

type BackInStockRequest struct {
	Email           string            `json:"email" validate:"required,email"`
	ItemURL         string            `json:"item_url"`
	ProductID       string            `json:"product_id" validate:"required"`
	VariantID       string            `json:"variant_id,omitempty"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	ProductName     string            `json:"product_name,omitempty"`
	Price           string            `json:"price,omitempty"`
	ImageURL        string            `json:"image_url,omitempty"`
}

type ProductCheckoutInput struct {
	ProductID       string            `json:"product_id"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	Quantity        int               `json:"quantity"`
}
