package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

// CatalogCache keeps catalog lookups shared by every session.
type CatalogCache interface {
	Product(ctx context.Context, slug string) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	Collection(ctx context.Context, slug string) (*domain.Collection, error)
	SetCollection(ctx context.Context, collection *domain.Collection) error
}

var ErrCacheMiss = errors.New("cache miss")
