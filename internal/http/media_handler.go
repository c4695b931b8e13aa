package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/media"
)

const maxUploadSize = 100 << 20 // 100MB

type MediaHandler struct {
	issuer  media.URLIssuer
	timeout time.Duration
}

func NewMediaHandler(issuer media.URLIssuer, timeout time.Duration) *MediaHandler {
	return &MediaHandler{issuer: issuer, timeout: timeout}
}

type UploadURLResponseDTO struct {
	UploadURL string `json:"uploadUrl"`
}

// UploadURL handles GET /api/review/media/upload-url.
func (h *MediaHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	fileName := r.URL.Query().Get("fileName")
	mimeType := r.URL.Query().Get("mimeType")
	if fileName == "" || mimeType == "" {
		http.Error(w, "Missing required query parameters", http.StatusBadRequest)
		return
	}

	u, err := h.issuer.UploadURL(ctx, fileName, mimeType)
	if err != nil {
		logger.Printf(ctx, "issue upload url: %v", err)
		handleError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, UploadURLResponseDTO{UploadURL: u})
}

type AttachmentsResponseDTO struct {
	Items     []domain.Attachment `json:"items"`
	CanAdd    bool                `json:"can_add"`
	CanSubmit bool                `json:"can_submit"`
}

func attachmentsResponse(a *media.Attachments) AttachmentsResponseDTO {
	items := a.List()
	if items == nil {
		items = []domain.Attachment{}
	}
	return AttachmentsResponseDTO{Items: items, CanAdd: a.CanAdd(), CanSubmit: a.CanSubmit()}
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, attachmentsResponse(s.Attachments))
}

// Upload streams a multipart "file" field to storage. The upload has no
// deadline of its own.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "multipart field \"file\" is required")
		return
	}
	defer f.Close()

	mimeType := hdr.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	att, err := s.Attachments.Upload(r.Context(), media.File{
		Name:     hdr.Filename,
		MimeType: mimeType,
		Size:     hdr.Size,
		Body:     f,
	})
	if errors.Is(err, media.ErrTooManyAttachments) {
		handleError(r.Context(), w, err)
		return
	}
	// A failed upload is still reported as an attachment in the failed state.
	respondJSON(w, http.StatusCreated, att)
}

func (h *MediaHandler) Remove(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if err := s.Attachments.Remove(chi.URLParam(r, "attachmentID")); err != nil {
		handleError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, attachmentsResponse(s.Attachments))
}
