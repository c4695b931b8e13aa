// Package catalog serves products and collections to the shop pages, with
// slug lookups read through the shared Redis cache.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
)

// PageSize is the number of products on one shop page.
const PageSize = 8

var ErrNotFound = errors.New("catalog: not found")

// Result is one page of products.
type Result struct {
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	TotalCount int              `json:"total_count"`
	Items      []domain.Product `json:"items"`
	Pagination *Pagination      `json:"pagination,omitempty"`
}

type Service struct {
	api   commerce.CatalogAPI
	cache cache.CatalogCache
}

// NewService builds a catalog service. c may be nil, in which case every
// lookup goes to the platform.
func NewService(api commerce.CatalogAPI, c cache.CatalogCache) *Service {
	return &Service{api: api, cache: c}
}

// Products returns the page of products f asks for. A page past the last one
// is not found.
func (s *Service) Products(ctx context.Context, f Filter) (*Result, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	page, err := s.api.QueryProducts(ctx, f.Query(PageSize))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	total := max(page.TotalPages, 1)
	if f.Page > total {
		return nil, ErrNotFound
	}
	return &Result{
		Page:       f.Page,
		TotalPages: total,
		TotalCount: page.TotalCount,
		Items:      page.Items,
		Pagination: Paginate(f.Page, total),
	}, nil
}

// CollectionProducts lists the products of the collection with the given
// slug.
func (s *Service) CollectionProducts(ctx context.Context, slug string, f Filter) (*domain.Collection, *Result, error) {
	col, err := s.CollectionBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	f.CollectionIDs = []string{col.ID}
	res, err := s.Products(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return col, res, nil
}

func (s *Service) ProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if s.cache != nil {
		p, err := s.cache.Product(ctx, slug)
		switch {
		case err == nil:
			return visible(p)
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Printf(ctx, "catalog cache read %s: %v", slug, err)
		}
	}

	p, err := s.api.ProductBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "product "+slug)
	}
	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, p); err != nil {
			logger.Printf(ctx, "catalog cache write %s: %v", slug, err)
		}
	}
	return visible(p)
}

// Related suggests products from the collections of the product with the
// given slug. Hidden products are never suggested.
func (s *Service) Related(ctx context.Context, slug string) ([]domain.Product, error) {
	p, err := s.ProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	items, err := s.api.RelatedProducts(ctx, p.ID)
	if err != nil {
		return nil, notFound(err, "related products of "+slug)
	}
	out := make([]domain.Product, 0, len(items))
	for _, r := range items {
		if r.Visible && r.ID != p.ID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) CollectionBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	if s.cache != nil {
		c, err := s.cache.Collection(ctx, slug)
		switch {
		case err == nil:
			return c, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Printf(ctx, "catalog cache read collection %s: %v", slug, err)
		}
	}

	c, err := s.api.CollectionBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "collection "+slug)
	}
	if s.cache != nil {
		if err := s.cache.SetCollection(ctx, c); err != nil {
			logger.Printf(ctx, "catalog cache write collection %s: %v", slug, err)
		}
	}
	return c, nil
}

func (s *Service) Collections(ctx context.Context) ([]domain.Collection, error) {
	cols, err := s.api.QueryCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	return cols, nil
}

func visible(p *domain.Product) (*domain.Product, error) {
	if p == nil || !p.Visible {
		return nil, ErrNotFound
	}
	return p, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, commerce.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}
