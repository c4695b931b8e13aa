package sandbox

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
)

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	cart, err := s.carts.GetCart(ctx, claimsFrom(ctx).Subject)
	if err != nil {
		s.cartError(ctx, w, "get cart", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// DeleteCart is idempotent: deleting a missing cart succeeds.
func (s *Server) DeleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	err := s.carts.DeleteCart(ctx, claimsFrom(ctx).Subject)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		internalError(ctx, w, "delete cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var in domain.AddToCartInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if in.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive", "")
		return
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	owner := claimsFrom(ctx).Subject

	item, ok := s.resolveItem(ctx, w, in.ProductID, in.SelectedOptions, in.Quantity)
	if !ok {
		return
	}
	if limit := item.Availability.Quantity; limit != nil {
		inCart := 0
		if cart, err := s.carts.GetCart(ctx, owner); err == nil {
			for _, li := range cart.LineItems {
				if li.ProductID == item.ProductID && variantKey(li.Options) == variantKey(item.Options) {
					inCart += li.Quantity
				}
			}
		} else if !errors.Is(err, ErrCartNotFound) {
			internalError(ctx, w, "get cart", err)
			return
		}
		if inCart+in.Quantity > *limit {
			writeError(w, http.StatusBadRequest, "not enough items in stock", CodeInsufficientStock)
			return
		}
	}

	cart, err := s.carts.AddItem(ctx, owner, item)
	if err != nil {
		s.cartError(ctx, w, "add item", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var in quantityRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if in.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive", "")
		return
	}
	owner := claimsFrom(ctx).Subject
	lineItemID := chi.URLParam(r, "lineItemID")

	cart, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		s.cartError(ctx, w, "get cart", err)
		return
	}
	li, ok := cart.LineItem(lineItemID)
	if !ok {
		s.cartError(ctx, w, "update item", ErrItemNotFound)
		return
	}
	if limit, bounded := li.MaxQuantity(); bounded && in.Quantity > limit {
		writeError(w, http.StatusBadRequest, "not enough items in stock", CodeInsufficientStock)
		return
	}

	cart, err = s.carts.UpdateItemQuantity(ctx, owner, lineItemID, in.Quantity)
	if err != nil {
		s.cartError(ctx, w, "update item", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	cart, err := s.carts.RemoveItem(ctx, claimsFrom(ctx).Subject, chi.URLParam(r, "lineItemID"))
	if err != nil {
		s.cartError(ctx, w, "remove item", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) cartError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrCartNotFound):
		writeError(w, http.StatusNotFound, "cart not found", commerce.CodeCartNotFound)
	case errors.Is(err, ErrItemNotFound):
		writeError(w, http.StatusNotFound, "line item not found", CodeLineItemNotFound)
	case errors.Is(err, ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	default:
		internalError(ctx, w, op, err)
	}
}

// resolveItem prices a product for the cart or a checkout. On failure it has
// already answered and returns false.
func (s *Server) resolveItem(ctx context.Context, w http.ResponseWriter, productID string, selected map[string]string, quantity int) (domain.LineItem, bool) {
	p, err := s.catalog.Product(ctx, productID)
	if errors.Is(err, ErrProductNotFound) || (err == nil && !p.Visible) {
		writeError(w, http.StatusNotFound, "product not found", CodeProductNotFound)
		return domain.LineItem{}, false
	}
	if err != nil {
		internalError(ctx, w, "get product", err)
		return domain.LineItem{}, false
	}

	var variantID string
	if len(p.Variants) > 0 {
		v, ok := p.FindVariant(selected)
		if !ok {
			writeError(w, http.StatusBadRequest, "no variant matches the selected options", CodeVariantNotFound)
			return domain.LineItem{}, false
		}
		variantID = v.ID
	}

	stock, tracked, err := s.catalog.Stock(ctx, p.ID, variantID)
	if err != nil {
		internalError(ctx, w, "get stock", err)
		return domain.LineItem{}, false
	}
	var limit *int
	if tracked {
		if stock <= 0 {
			writeError(w, http.StatusBadRequest, "product is out of stock", CodeOutOfStock)
			return domain.LineItem{}, false
		}
		limit = &stock
	}

	price := p.Price
	if !p.DiscountPrice.IsZero() {
		price = p.DiscountPrice
	}
	return domain.LineItem{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Slug:         p.Slug,
		ImageURL:     p.ImageURL,
		Quantity:     quantity,
		Price:        domain.Money{Amount: price, Currency: p.Currency},
		Availability: availability(limit),
		Options:      optionLabels(selected),
	}, true
}
