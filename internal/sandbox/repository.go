package sandbox

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// CartRepository stores one cart per token subject.
type CartRepository interface {
	GetCart(ctx context.Context, owner string) (*domain.Cart, error)
	AddItem(ctx context.Context, owner string, item domain.LineItem) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner, lineItemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, owner, lineItemID string) (*domain.Cart, error)
	DeleteCart(ctx context.Context, owner string) error
}

// ReviewRepository pages reviews newest first.
type ReviewRepository interface {
	ListReviews(ctx context.Context, productID string, limit int, cursor string) ([]domain.Review, string, error)
	CreateReview(ctx context.Context, review *domain.Review) error
}

type OrderRepository interface {
	ListOrders(ctx context.Context, owner string, limit int, cursor string) ([]domain.Order, string, error)
	CreateOrder(ctx context.Context, owner string, order *domain.Order) error
}

// BackInStockRepository returns ErrAlreadyExists for a repeated request.
type BackInStockRepository interface {
	CreateBackInStockRequest(ctx context.Context, req domain.BackInStockRequest) error
}
