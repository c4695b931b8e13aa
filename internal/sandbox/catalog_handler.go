package sandbox

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/domain"
)

func (s *Server) QueryProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var q domain.ProductsQuery
	if err := decodeBody(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	page, err := s.catalog.QueryProducts(ctx, q)
	if err != nil {
		internalError(ctx, w, "query products", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) ProductBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	p, err := s.catalog.ProductBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product not found", CodeProductNotFound)
		return
	}
	if err != nil {
		internalError(ctx, w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) RelatedProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	items, err := s.catalog.RelatedProducts(ctx, chi.URLParam(r, "productID"))
	if errors.Is(err, ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product not found", CodeProductNotFound)
		return
	}
	if err != nil {
		internalError(ctx, w, "related products", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Product{"items": items})
}

func (s *Server) Collections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	cols, err := s.catalog.QueryCollections(ctx)
	if err != nil {
		internalError(ctx, w, "query collections", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Collection{"items": cols})
}

func (s *Server) CollectionBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	col, err := s.catalog.CollectionBySlug(ctx, chi.URLParam(r, "slug"))
	if errors.Is(err, ErrCollectionNotFound) {
		writeError(w, http.StatusNotFound, "collection not found", "")
		return
	}
	if err != nil {
		internalError(ctx, w, "get collection", err)
		return
	}
	writeJSON(w, http.StatusOK, col)
}
