package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPlatform struct {
	m           sync.RWMutex
	member      *domain.Member
	checkoutErr error
	product     *domain.ProductCheckoutInput
	loginData   *domain.OAuthData
}

func (m *mockPlatform) CheckoutURLForCart(context.Context) (string, error) {
	if m.checkoutErr != nil {
		return "", m.checkoutErr
	}
	return "https://checkout.example/cart", nil
}

func (m *mockPlatform) CheckoutURLForProduct(_ context.Context, in domain.ProductCheckoutInput) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.product = &in
	return "https://checkout.example/product", m.checkoutErr
}

func (m *mockPlatform) CurrentMember(context.Context) (*domain.Member, error) {
	return m.member, nil
}

func (m *mockPlatform) GenerateVisitorTokens(context.Context) (domain.Tokens, error) {
	return domain.Tokens{AccessToken: "visitor"}, nil
}

func (m *mockPlatform) RefreshTokens(context.Context, string) (domain.Tokens, error) {
	return domain.Tokens{AccessToken: "renewed"}, nil
}

func (m *mockPlatform) GenerateOAuthData(redirectURI, originalURI string) (domain.OAuthData, error) {
	return domain.OAuthData{State: "st", CodeVerifier: "cv", RedirectURI: redirectURI, OriginalURI: originalURI}, nil
}

func (m *mockPlatform) LoginURL(_ context.Context, data domain.OAuthData) (string, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.loginData = &data
	return "https://login.example/?state=" + data.State, nil
}

func (m *mockPlatform) LogoutURL(context.Context, string) (string, error) {
	return "https://logout.example", nil
}

func (m *mockPlatform) MemberTokens(context.Context, string, string, domain.OAuthData) (domain.Tokens, error) {
	return domain.Tokens{}, nil
}

const callback = "https://shop.example/api/auth/callback/wix"

func TestStartCartCheckout_VisitorGoesToLogin(t *testing.T) {
	api := &mockPlatform{}
	f := NewFlow(api, notify.NewQueue(0), callback)

	r, err := f.StartCartCheckout(context.Background(), "/shop?page=2")
	require.NoError(t, err)
	assert.True(t, r.Login())
	assert.Equal(t, "https://login.example/?state=st", r.URL)
	assert.Equal(t, callback, r.OAuthData.RedirectURI)
	assert.Equal(t, "/shop?page=2", r.OAuthData.OriginalURI)
	assert.Equal(t, r.OAuthData, api.loginData)
}

func TestStartCartCheckout_MemberGetsCheckoutURL(t *testing.T) {
	api := &mockPlatform{member: &domain.Member{ID: "m-1"}}
	f := NewFlow(api, notify.NewQueue(0), callback)

	r, err := f.StartCartCheckout(context.Background(), "/")
	require.NoError(t, err)
	assert.False(t, r.Login())
	assert.Equal(t, "https://checkout.example/cart", r.URL)
}

func TestStartQuickBuy(t *testing.T) {
	api := &mockPlatform{member: &domain.Member{ID: "m-1"}}
	f := NewFlow(api, notify.NewQueue(0), callback)

	r, err := f.StartQuickBuy(context.Background(), "/products/shirt", domain.ProductCheckoutInput{ProductID: "p-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/product", r.URL)
	require.NotNil(t, api.product)
	assert.Equal(t, 1, api.product.Quantity)
}

func TestStartCheckout_FailureNotifies(t *testing.T) {
	api := &mockPlatform{member: &domain.Member{ID: "m-1"}, checkoutErr: errors.New("down")}
	queue := notify.NewQueue(0)
	f := NewFlow(api, queue, callback)

	_, err := f.StartCartCheckout(context.Background(), "/")
	require.Error(t, err)

	notes := queue.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, MsgFailed, notes[0].Message)
}
