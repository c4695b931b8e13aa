package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
)

type CatalogHandler struct {
	catalog *catalog.Service
	timeout time.Duration
}

func NewCatalogHandler(svc *catalog.Service, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{catalog: svc, timeout: timeout}
}

// Products handles the shop page query: page, q, collection, price_min,
// price_max and sort.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.catalog.Products(ctx, catalog.ParseFilter(r.URL.Query()))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.ProductBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type RelatedResponseDTO struct {
	Items []domain.Product `json:"items"`
}

// Related handles GET /api/v1/products/{slug}/related.
func (h *CatalogHandler) Related(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.catalog.Related(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, RelatedResponseDTO{Items: items})
}

type CollectionsResponseDTO struct {
	Items []domain.Collection `json:"items"`
}

func (h *CatalogHandler) Collections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cols, err := h.catalog.Collections(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	if cols == nil {
		cols = []domain.Collection{}
	}
	respondJSON(w, http.StatusOK, CollectionsResponseDTO{Items: cols})
}

type CollectionProductsResponseDTO struct {
	Collection *domain.Collection `json:"collection"`
	*catalog.Result
}

func (h *CatalogHandler) CollectionProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	col, res, err := h.catalog.CollectionProducts(ctx, chi.URLParam(r, "slug"), catalog.ParseFilter(r.URL.Query()))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, CollectionProductsResponseDTO{Collection: col, Result: res})
}
