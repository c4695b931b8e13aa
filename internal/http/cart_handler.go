package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/cartsync"
	"github.com/fjod/storefront/internal/domain"
)

type CartHandler struct {
	timeout time.Duration
}

func NewCartHandler(timeout time.Duration) *CartHandler {
	return &CartHandler{timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID       string            `json:"product_id"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	Quantity        int               `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// CartResponseDTO is the cart as the session currently sees it. Mutation is
// the state of the change the request started, if any.
type CartResponseDTO struct {
	Cart          *domain.Cart `json:"cart"`
	Subtotal      string       `json:"subtotal"`
	TotalQuantity int          `json:"total_quantity"`
	Mutation      string       `json:"mutation,omitempty"`
}

func cartResponse(c *domain.Cart, m *cartsync.Mutation) CartResponseDTO {
	out := CartResponseDTO{Cart: c, TotalQuantity: c.TotalQuantity()}
	if c != nil {
		out.Subtotal = c.Subtotal.Display()
	}
	if m != nil {
		out.Mutation = m.State().String()
	}
	return out
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	c, err := s.Cart.Cart(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(c, nil))
}

// AddItem waits for the platform, unlike the quantity edits, because nothing
// is patched ahead of it.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	m := s.Cart.AddItem(ctx, domain.AddToCartInput{
		ProductID:       req.ProductID,
		SelectedOptions: req.SelectedOptions,
		Quantity:        req.Quantity,
	})
	if err := m.Wait(ctx); err != nil {
		handleError(ctx, w, err)
		return
	}
	c, _ := s.Cart.Cart(ctx)
	respondJSON(w, http.StatusCreated, cartResponse(c, m))
}

// UpdateQuantity answers with the patched cart right away; the platform call
// settles in the background.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	m, err := s.Cart.ChangeQuantity(ctx, chi.URLParam(r, "lineItemID"), req.Quantity)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	c, _ := s.Cart.Snapshot().Data.(*domain.Cart)
	respondJSON(w, http.StatusAccepted, cartResponse(c, m))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	m := s.Cart.RemoveItem(r.Context(), chi.URLParam(r, "lineItemID"))
	c, _ := s.Cart.Snapshot().Data.(*domain.Cart)
	respondJSON(w, http.StatusAccepted, cartResponse(c, m))
}

// ClearCart starts the retried clear and returns before it completes.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	m := s.Cart.Clear(r.Context())
	c, _ := s.Cart.Snapshot().Data.(*domain.Cart)
	respondJSON(w, http.StatusAccepted, cartResponse(c, m))
}
