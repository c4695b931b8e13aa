package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/notify"
)

// MaxAttachments is how many non-failed files one review may carry.
const MaxAttachments = 5

const MsgUploadFailed = "Failed to upload file"

var (
	ErrTooManyAttachments = errors.New("media: attachment limit reached")
	ErrAttachmentNotFound = errors.New("media: attachment not found")
)

// File is a file picked for upload.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

type uploadResponse struct {
	File struct {
		URL string `json:"url"`
	} `json:"file"`
}

// Attachments is the set of files attached in one review dialog.
type Attachments struct {
	issuer   URLIssuer
	client   *http.Client
	notifier notify.Notifier

	mu    sync.RWMutex
	items []domain.Attachment
}

// NewAttachments uses a client without timeout for the upload itself; large
// videos take as long as they take.
func NewAttachments(issuer URLIssuer, notifier notify.Notifier) *Attachments {
	return &Attachments{
		issuer:   issuer,
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		notifier: notifier,
	}
}

// Upload adds f as an uploading attachment, pushes its bytes to storage and
// returns the attachment in its final state. A failed upload is kept in the
// set as failed and is also returned as an error.
func (a *Attachments) Upload(ctx context.Context, f File) (domain.Attachment, error) {
	att := domain.Attachment{
		ID:       uuid.NewString(),
		FileName: f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
		State:    domain.AttachmentUploading,
	}

	a.mu.Lock()
	if a.activeLocked() >= MaxAttachments {
		a.mu.Unlock()
		return domain.Attachment{}, ErrTooManyAttachments
	}
	a.items = append(a.items, att)
	a.mu.Unlock()

	fileURL, err := a.upload(ctx, f)
	if err != nil {
		logger.Printf(ctx, "upload %s: %v", f.Name, err)
		a.notifier.Notify(ctx, notify.Error(MsgUploadFailed))
		att = a.transition(att.ID, domain.AttachmentFailed, "")
		return att, err
	}
	return a.transition(att.ID, domain.AttachmentUploaded, fileURL), nil
}

func (a *Attachments) upload(ctx context.Context, f File) (string, error) {
	target, err := a.issuer.UploadURL(ctx, f.Name, f.MimeType)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}
	q := u.Query()
	q.Set("filename", f.Name)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), f.Body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if f.Size > 0 {
		req.ContentLength = f.Size
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("put file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("put file: unexpected status %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.File.URL == "" {
		return "", errors.New("upload response has no file url")
	}
	return out.File.URL, nil
}

func (a *Attachments) transition(id string, state domain.AttachmentState, fileURL string) domain.Attachment {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.items {
		if a.items[i].ID == id {
			a.items[i].State = state
			a.items[i].URL = fileURL
			return a.items[i]
		}
	}
	// Removed while uploading.
	return domain.Attachment{ID: id, State: state, URL: fileURL}
}

func (a *Attachments) activeLocked() int {
	n := 0
	for _, it := range a.items {
		if it.State != domain.AttachmentFailed {
			n++
		}
	}
	return n
}

func (a *Attachments) Remove(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.items {
		if a.items[i].ID == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return nil
		}
	}
	return ErrAttachmentNotFound
}

// Clear forgets every attachment, e.g. after the review was submitted.
func (a *Attachments) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
}

func (a *Attachments) List() []domain.Attachment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.Attachment(nil), a.items...)
}

func (a *Attachments) UploadInProgress() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, it := range a.items {
		if it.State == domain.AttachmentUploading {
			return true
		}
	}
	return false
}

// CanSubmit is false while any upload is still running. Failed uploads do
// not block.
func (a *Attachments) CanSubmit() bool {
	return !a.UploadInProgress()
}

func (a *Attachments) CanAdd() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeLocked() < MaxAttachments
}

// Uploaded returns the attachments whose upload finished.
func (a *Attachments) Uploaded() []domain.Attachment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []domain.Attachment
	for _, it := range a.items {
		if it.State == domain.AttachmentUploaded {
			out = append(out, it)
		}
	}
	return out
}
