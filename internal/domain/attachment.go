package domain

type AttachmentState string

const (
	AttachmentUploading AttachmentState = "uploading"
	AttachmentUploaded  AttachmentState = "uploaded"
	AttachmentFailed    AttachmentState = "failed"
)

// Attachment is a review media file selected in one dialog session.
type Attachment struct {
	ID       string          `json:"id"`
	FileName string          `json:"file_name"`
	MimeType string          `json:"mime_type"`
	Size     int64           `json:"size"`
	URL      string          `json:"url,omitempty"`
	State    AttachmentState `json:"state"`
}
