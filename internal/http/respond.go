package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker/v2"

	"github.com/fjod/storefront/internal/backinstock"
	"github.com/fjod/storefront/internal/cartsync"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/media"
	"github.com/fjod/storefront/internal/reviews"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts domain and platform errors to HTTP status codes.
func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		httpStatus int
		code       string
		message    = err.Error()
		remote     *commerce.RemoteError
	)

	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, commerce.ErrNotFound):
		httpStatus, code, message = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, reviews.ErrInvalidRating),
		errors.Is(err, reviews.ErrTitleRequired),
		errors.Is(err, reviews.ErrBodyRequired),
		errors.Is(err, backinstock.ErrInvalidEmail):
		httpStatus, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, cartsync.ErrQuantityUnavailable):
		httpStatus, code = http.StatusConflict, "quantity_unavailable"
	case errors.Is(err, media.ErrTooManyAttachments):
		httpStatus, code = http.StatusConflict, "too_many_attachments"
	case errors.Is(err, media.ErrAttachmentNotFound):
		httpStatus, code = http.StatusNotFound, "not_found"
	case errors.Is(err, commerce.ErrUnauthorized), errors.Is(err, commerce.ErrStateMismatch):
		httpStatus, code = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		httpStatus, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, commerce.ErrServiceFailure):
		httpStatus, code = http.StatusBadGateway, "upstream_error"
	case errors.As(err, &remote) && remote.Status < http.StatusInternalServerError:
		httpStatus, code = http.StatusBadRequest, "invalid_argument"
		if c := remote.Code(); c != "" {
			code = c
		}
	default:
		httpStatus, code, message = http.StatusInternalServerError, "internal_error", "internal server error"
	}

	if httpStatus >= http.StatusInternalServerError {
		logger.Printf(ctx, "request %s failed: %v", middleware.GetReqID(ctx), err)
	}
	respondError(w, httpStatus, code, message)
}
