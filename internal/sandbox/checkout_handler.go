package sandbox

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/poller"
)

type checkoutURLResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

func (s *Server) checkoutURL(id string) string {
	return s.url("/checkout/" + id)
}

func (s *Server) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	owner := claimsFrom(ctx).Subject
	cart, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		s.cartError(ctx, w, "get cart", err)
		return
	}
	if len(cart.LineItems) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty", CodeEmptyCart)
		return
	}

	co := s.checkouts.Start(owner, cart.ID, cart.LineItems)
	writeJSON(w, http.StatusOK, checkoutURLResponse{CheckoutURL: s.checkoutURL(co.ID)})
}

func (s *Server) CheckoutProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var in domain.ProductCheckoutInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	item, ok := s.resolveItem(ctx, w, in.ProductID, in.SelectedOptions, in.Quantity)
	if !ok {
		return
	}
	if limit := item.Availability.Quantity; limit != nil && in.Quantity > *limit {
		writeError(w, http.StatusBadRequest, "not enough items in stock", CodeInsufficientStock)
		return
	}

	co := s.checkouts.Start(claimsFrom(ctx).Subject, "", []domain.LineItem{item})
	writeJSON(w, http.StatusOK, checkoutURLResponse{CheckoutURL: s.checkoutURL(co.ID)})
}

func (s *Server) ShowCheckout(w http.ResponseWriter, r *http.Request) {
	co, err := s.checkouts.Get(chi.URLParam(r, "checkoutID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "checkout not found", "")
		return
	}
	writeJSON(w, http.StatusOK, co)
}

// CompleteCheckout stands in for payment: it records the order, empties the
// cart the checkout came from and announces the completion.
func (s *Server) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	id := chi.URLParam(r, "checkoutID")
	pending, err := s.checkouts.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "checkout not found", "")
		return
	}
	if pending.Completed {
		writeError(w, http.StatusConflict, "checkout already completed", CodeCheckoutCompleted)
		return
	}

	order := &domain.Order{
		Number:    strconv.FormatInt(pending.CreatedAt.UnixMilli()%1_000_000_000, 10),
		Status:    "APPROVED",
		LineItems: pending.LineItems,
		Total:     pending.Total,
	}
	if err := s.orders.CreateOrder(ctx, pending.Owner, order); err != nil {
		internalError(ctx, w, "create order", err)
		return
	}

	co, err := s.checkouts.Complete(id, order.ID)
	if errors.Is(err, ErrCheckoutCompleted) {
		writeError(w, http.StatusConflict, "checkout already completed", CodeCheckoutCompleted)
		return
	}
	if err != nil {
		writeError(w, http.StatusNotFound, "checkout not found", "")
		return
	}

	if co.CartID != "" {
		if err := s.carts.DeleteCart(ctx, co.Owner); err != nil && !errors.Is(err, ErrCartNotFound) {
			logger.Printf(ctx, "delete cart after checkout %s: %v", co.ID, err)
		}
		ev := poller.CheckoutCompleted{CartID: co.CartID}
		if err := s.events.PublishCheckoutCompleted(ctx, ev); err != nil {
			logger.Printf(ctx, "checkout %s completed but not announced: %v", co.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, co)
}

type ordersResponse struct {
	Items      []domain.Order `json:"items"`
	NextCursor *string        `json:"next_cursor"`
}

func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	claims := claimsFrom(ctx)
	if claims.Role != domain.RoleMember {
		writeError(w, http.StatusForbidden, "orders are only available to members", "")
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	orders, next, err := s.orders.ListOrders(ctx, claims.Subject, limit, q.Get("cursor"))
	if errors.Is(err, ErrInvalidCursor) {
		writeError(w, http.StatusBadRequest, "invalid cursor", CodeInvalidCursor)
		return
	}
	if err != nil {
		internalError(ctx, w, "list orders", err)
		return
	}
	resp := ordersResponse{Items: orders}
	if next != "" {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) CreateBackInStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var req domain.BackInStockRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "email and product_id are required", "")
		return
	}
	req.Email = strings.ToLower(req.Email)

	err := s.backInStock.CreateBackInStockRequest(ctx, req)
	if errors.Is(err, ErrAlreadyExists) {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("%s is already subscribed", req.Email), commerce.CodeBackInStockAlreadyExists)
		return
	}
	if err != nil {
		internalError(ctx, w, "create back in stock request", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
