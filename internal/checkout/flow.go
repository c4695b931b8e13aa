// Package checkout hands a session over to the platform's hosted checkout,
// sending visitors through member login first.
package checkout

import (
	"context"
	"fmt"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/notify"
)

const MsgFailed = "Failed to load checkout. Please try again."

// Platform is the part of the commerce client a checkout needs.
type Platform interface {
	commerce.CheckoutAPI
	commerce.MembersAPI
	commerce.AuthAPI
}

// Redirect is where to send the shopper next. OAuthData is set when the
// target is the login page; it must be stored in the handshake cookie so the
// callback can finish the login.
type Redirect struct {
	URL       string            `json:"url"`
	OAuthData *domain.OAuthData `json:"-"`
}

// Login reports whether the redirect goes to member login.
func (r Redirect) Login() bool {
	return r.OAuthData != nil
}

type Flow struct {
	api         Platform
	notifier    notify.Notifier
	callbackURL string
}

// NewFlow builds a flow whose logins return to callbackURL.
func NewFlow(api Platform, notifier notify.Notifier, callbackURL string) *Flow {
	return &Flow{api: api, notifier: notifier, callbackURL: callbackURL}
}

// StartCartCheckout checks out the session's current cart. originalURI is
// where the shopper returns after logging in.
func (f *Flow) StartCartCheckout(ctx context.Context, originalURI string) (Redirect, error) {
	return f.start(ctx, originalURI, f.api.CheckoutURLForCart)
}

// StartQuickBuy checks out a single product without touching the cart.
func (f *Flow) StartQuickBuy(ctx context.Context, originalURI string, input domain.ProductCheckoutInput) (Redirect, error) {
	if input.Quantity <= 0 {
		input.Quantity = 1
	}
	return f.start(ctx, originalURI, func(ctx context.Context) (string, error) {
		return f.api.CheckoutURLForProduct(ctx, input)
	})
}

func (f *Flow) start(ctx context.Context, originalURI string, checkoutURL func(context.Context) (string, error)) (Redirect, error) {
	redirect, err := f.resolve(ctx, originalURI, checkoutURL)
	if err != nil {
		logger.Printf(ctx, "start checkout: %v", err)
		f.notifier.Notify(ctx, notify.Error(MsgFailed))
		return Redirect{}, err
	}
	return redirect, nil
}

func (f *Flow) resolve(ctx context.Context, originalURI string, checkoutURL func(context.Context) (string, error)) (Redirect, error) {
	member, err := f.api.CurrentMember(ctx)
	if err != nil {
		return Redirect{}, fmt.Errorf("load member: %w", err)
	}

	if member == nil {
		data, err := f.api.GenerateOAuthData(f.callbackURL, originalURI)
		if err != nil {
			return Redirect{}, fmt.Errorf("generate oauth data: %w", err)
		}
		loginURL, err := f.api.LoginURL(ctx, data)
		if err != nil {
			return Redirect{}, fmt.Errorf("login url: %w", err)
		}
		return Redirect{URL: loginURL, OAuthData: &data}, nil
	}

	u, err := checkoutURL(ctx)
	if err != nil {
		return Redirect{}, fmt.Errorf("checkout url: %w", err)
	}
	return Redirect{URL: u}, nil
}
