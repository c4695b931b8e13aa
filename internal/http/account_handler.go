package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/notify"
)

// AccountHandler serves what belongs to the shopper rather than the catalog:
// notifications, member profile and orders.
type AccountHandler struct {
	timeout time.Duration
}

func NewAccountHandler(timeout time.Duration) *AccountHandler {
	return &AccountHandler{timeout: timeout}
}

type NotificationsResponseDTO struct {
	Items []notify.Notification `json:"items"`
}

// Notifications drains the session's pending toasts.
func (h *AccountHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	items := s.Notifications.Drain()
	if items == nil {
		items = []notify.Notification{}
	}
	respondJSON(w, http.StatusOK, NotificationsResponseDTO{Items: items})
}

type MeResponseDTO struct {
	LoggedIn bool           `json:"logged_in"`
	Member   *domain.Member `json:"member,omitempty"`
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	member, err := s.Client.CurrentMember(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, MeResponseDTO{LoggedIn: member != nil, Member: member})
}

type OrdersResponseDTO struct {
	Items      []domain.Order `json:"items"`
	NextCursor *string        `json:"next_cursor"`
}

// Orders lists the logged-in member's orders, newest first.
func (h *AccountHandler) Orders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if s.Tokens.Role != domain.RoleMember {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "login required")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	var cursor *string
	if v := r.URL.Query().Get("cursor"); v != "" {
		cursor = &v
	}

	orders, next, err := s.Client.ListOrders(ctx, limit, cursor)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, http.StatusOK, OrdersResponseDTO{Items: orders, NextCursor: next})
}
