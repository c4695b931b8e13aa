package sandbox

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUploadNotFound = errors.New("upload not found")

// Upload is a file slot handed out by the upload-url endpoint.
type Upload struct {
	ID       string
	MimeType string
	FileName string
	FilePath string
	Private  bool
	Data     []byte
	Uploaded bool
	Created  time.Time
}

// Uploads keeps uploaded media in memory.
type Uploads struct {
	mu    sync.RWMutex
	files map[string]*Upload
}

func NewUploads() *Uploads {
	return &Uploads{files: make(map[string]*Upload)}
}

// Reserve creates an empty slot and returns its id.
func (u *Uploads) Reserve(mimeType, fileName, filePath string, private bool) string {
	up := &Upload{
		ID:       uuid.NewString(),
		MimeType: mimeType,
		FileName: fileName,
		FilePath: filePath,
		Private:  private,
		Created:  time.Now(),
	}
	u.mu.Lock()
	u.files[up.ID] = up
	u.mu.Unlock()
	return up.ID
}

// Put stores data in a reserved slot. A non-empty fileName replaces the
// reserved name.
func (u *Uploads) Put(id, fileName string, data []byte) (Upload, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	up, ok := u.files[id]
	if !ok {
		return Upload{}, ErrUploadNotFound
	}
	if fileName != "" {
		up.FileName = fileName
	}
	up.Data = data
	up.Uploaded = true
	return *up, nil
}

// Get returns a completed upload.
func (u *Uploads) Get(id string) (Upload, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	up, ok := u.files[id]
	if !ok || !up.Uploaded {
		return Upload{}, ErrUploadNotFound
	}
	return *up, nil
}
