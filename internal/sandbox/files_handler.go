package sandbox

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
)

type uploadURLRequest struct {
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	Private  bool   `json:"private"`
}

type uploadURLResponse struct {
	UploadURL string `json:"upload_url"`
}

func (s *Server) UploadURL(w http.ResponseWriter, r *http.Request) {
	var in uploadURLRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if in.MimeType == "" {
		writeError(w, http.StatusBadRequest, "mime_type is required", "")
		return
	}

	id := s.uploads.Reserve(in.MimeType, in.FileName, in.FilePath, in.Private)
	writeJSON(w, http.StatusOK, uploadURLResponse{UploadURL: s.url("/_upload/" + id)})
}

type uploadedFile struct {
	URL string `json:"url"`
}

type uploadResponse struct {
	File uploadedFile `json:"file"`
}

// ReceiveUpload stores the raw request body. ?filename overrides the name
// given when the URL was issued.
func (s *Server) ReceiveUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uploadID")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read upload", "")
		return
	}

	up, err := s.uploads.Put(id, r.URL.Query().Get("filename"), data)
	if err != nil {
		writeError(w, http.StatusNotFound, "upload url not found", "")
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		File: uploadedFile{URL: s.url("/_files/" + up.ID + "/" + url.PathEscape(up.FileName))},
	})
}

func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request) {
	up, err := s.uploads.Get(chi.URLParam(r, "uploadID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if up.MimeType != "" {
		w.Header().Set("Content-Type", up.MimeType)
	}
	http.ServeContent(w, r, up.FileName, up.Created.Truncate(time.Second), bytes.NewReader(up.Data))
}
