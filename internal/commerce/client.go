// Package commerce is the boundary to the headless commerce platform. The
// platform owns carts, catalog, checkout, orders, reviews, members, media and
// authentication; this package only shapes requests and responses.
package commerce

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
)

type CartAPI interface {
	// GetCart returns nil without error when the session has no cart yet.
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddToCart(ctx context.Context, input domain.AddToCartInput) (*domain.Cart, error)
	UpdateLineItemQuantity(ctx context.Context, lineItemID string, quantity int) (*domain.Cart, error)
	RemoveLineItem(ctx context.Context, lineItemID string) (*domain.Cart, error)
	ClearCart(ctx context.Context) error
}

type CatalogAPI interface {
	QueryProducts(ctx context.Context, query domain.ProductsQuery) (*domain.ProductsPage, error)
	ProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	// RelatedProducts suggests products from the same collections.
	RelatedProducts(ctx context.Context, productID string) ([]domain.Product, error)
	QueryCollections(ctx context.Context) ([]domain.Collection, error)
	CollectionBySlug(ctx context.Context, slug string) (*domain.Collection, error)
}

type ReviewsAPI interface {
	QueryReviews(ctx context.Context, query domain.ReviewsQuery) (*domain.ReviewPage, error)
	CreateReview(ctx context.Context, input domain.CreateReviewInput) (*domain.Review, error)
}

type CheckoutAPI interface {
	CheckoutURLForCart(ctx context.Context) (string, error)
	CheckoutURLForProduct(ctx context.Context, input domain.ProductCheckoutInput) (string, error)
}

type OrdersAPI interface {
	ListOrders(ctx context.Context, limit int, cursor *string) ([]domain.Order, *string, error)
}

type MembersAPI interface {
	// CurrentMember returns nil without error for visitors.
	CurrentMember(ctx context.Context) (*domain.Member, error)
}

type BackInStockAPI interface {
	CreateBackInStockRequest(ctx context.Context, req domain.BackInStockRequest) error
}

type UploadOptions struct {
	FileName string
	FilePath string
	Private  bool
}

type FilesAPI interface {
	GenerateUploadURL(ctx context.Context, mimeType string, opts UploadOptions) (string, error)
}

type AuthAPI interface {
	GenerateVisitorTokens(ctx context.Context) (domain.Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (domain.Tokens, error)
	GenerateOAuthData(redirectURI, originalURI string) (domain.OAuthData, error)
	LoginURL(ctx context.Context, data domain.OAuthData) (string, error)
	LogoutURL(ctx context.Context, originalURI string) (string, error)
	MemberTokens(ctx context.Context, code, state string, data domain.OAuthData) (domain.Tokens, error)
}

// Client is everything the storefront consumes from the platform.
type Client interface {
	CartAPI
	CatalogAPI
	ReviewsAPI
	CheckoutAPI
	OrdersAPI
	MembersAPI
	BackInStockAPI
	AuthAPI
}
