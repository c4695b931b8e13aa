package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/reviews"
)

type ReviewHandler struct {
	timeout time.Duration
}

func NewReviewHandler(timeout time.Duration) *ReviewHandler {
	return &ReviewHandler{timeout: timeout}
}

type ReviewsResponseDTO struct {
	Items          []domain.Review `json:"items"`
	Status         string          `json:"status"`
	HasNext        bool            `json:"has_next"`
	IsFetchingNext bool            `json:"is_fetching_next"`
	Error          string          `json:"error,omitempty"`
}

// List returns the approved reviews loaded so far for a product. The first
// call loads the first page, ?more=1 loads the next one and ?reset=1 starts
// over.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	pager := s.Reviews.For(chi.URLParam(r, "productID"))

	q := r.URL.Query()
	if q.Get("reset") == "1" {
		pager.Reset()
	}
	if len(pager.Pages()) == 0 || q.Get("more") == "1" {
		// Fetch errors surface through the pager status.
		if err := pager.FetchNext(ctx); err != nil && !errors.Is(err, reviews.ErrNoMorePages) && pager.Err() == nil {
			handleError(ctx, w, err)
			return
		}
	}

	out := ReviewsResponseDTO{
		Items:          pager.Items(),
		Status:         string(pager.Status()),
		HasNext:        pager.HasNext(),
		IsFetchingNext: pager.IsFetchingNext(),
	}
	if out.Items == nil {
		out.Items = []domain.Review{}
	}
	if err := pager.Err(); err != nil {
		out.Error = "Failed to load reviews"
	}
	respondJSON(w, http.StatusOK, out)
}

type CreateReviewRequestDTO struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Rating int    `json:"rating"`
}

// Create submits a review with the session's uploaded attachments. It is
// refused while an upload is still running.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req CreateReviewRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !s.Attachments.CanSubmit() {
		respondError(w, http.StatusConflict, "upload_in_progress", "wait for uploads to finish")
		return
	}

	review, err := s.ReviewCreator.Create(ctx, domain.CreateReviewInput{
		ProductID: chi.URLParam(r, "productID"),
		Title:     req.Title,
		Body:      req.Body,
		Rating:    req.Rating,
	}, s.Attachments.Uploaded())
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	s.Attachments.Clear()
	respondJSON(w, http.StatusCreated, review)
}
