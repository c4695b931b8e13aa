package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/backinstock"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/session"
)

type CheckoutHandler struct {
	catalog *catalog.Service
	cookies session.Cookies
	timeout time.Duration
}

func NewCheckoutHandler(svc *catalog.Service, cookies session.Cookies, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{catalog: svc, cookies: cookies, timeout: timeout}
}

type CheckoutRequestDTO struct {
	// ReturnTo is the storefront path to come back to after a login.
	ReturnTo string `json:"return_to"`
}

type QuickBuyRequestDTO struct {
	ReturnTo        string            `json:"return_to"`
	ProductID       string            `json:"product_id"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	Quantity        int               `json:"quantity"`
}

type RedirectResponseDTO struct {
	URL   string `json:"url"`
	Login bool   `json:"login"`
}

// Checkout handles POST /api/v1/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req CheckoutRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	redirect, err := s.Checkout.StartCartCheckout(ctx, returnTo(req.ReturnTo))
	h.respondRedirect(ctx, w, redirect, err)
}

// QuickBuy handles POST /api/v1/checkout/quick-buy.
func (h *CheckoutHandler) QuickBuy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req QuickBuyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	redirect, err := s.Checkout.StartQuickBuy(ctx, returnTo(req.ReturnTo), domain.ProductCheckoutInput{
		ProductID:       req.ProductID,
		SelectedOptions: req.SelectedOptions,
		Quantity:        req.Quantity,
	})
	h.respondRedirect(ctx, w, redirect, err)
}

func (h *CheckoutHandler) respondRedirect(ctx context.Context, w http.ResponseWriter, redirect checkout.Redirect, err error) {
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	if redirect.Login() {
		if err := h.cookies.SetOAuthData(w, *redirect.OAuthData); err != nil {
			logger.Printf(ctx, "set oauth cookie: %v", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
	}
	respondJSON(w, http.StatusOK, RedirectResponseDTO{URL: redirect.URL, Login: redirect.Login()})
}

// returnTo keeps post-login redirects on this site.
func returnTo(path string) string {
	if path == "" || path[0] != '/' || (len(path) > 1 && (path[1] == '/' || path[1] == '\\')) {
		return "/"
	}
	return path
}

type BackInStockRequestDTO struct {
	Email           string            `json:"email"`
	ProductSlug     string            `json:"product_slug"`
	ItemURL         string            `json:"item_url"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
}

// BackInStock handles POST /api/v1/back-in-stock.
func (h *CheckoutHandler) BackInStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req BackInStockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.catalog.ProductBySlug(ctx, req.ProductSlug)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	err = s.BackInStock.Subscribe(ctx, backinstock.Request{
		Email:           req.Email,
		ItemURL:         req.ItemURL,
		Product:         *product,
		SelectedOptions: req.SelectedOptions,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
