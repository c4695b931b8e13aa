package domain

import "time"

type ModerationStatus string

const (
	ModerationApproved     ModerationStatus = "APPROVED"
	ModerationPending      ModerationStatus = "PENDING"
	ModerationRejected     ModerationStatus = "REJECTED"
	ModerationInModeration ModerationStatus = "IN_MODERATION"
)

type Review struct {
	ID         string           `json:"id"`
	ProductID  string           `json:"product_id"`
	AuthorName string           `json:"author_name,omitempty"`
	Rating     int              `json:"rating"`
	Title      string           `json:"title,omitempty"`
	Body       string           `json:"body,omitempty"`
	Media      []ReviewMedia    `json:"media,omitempty"`
	Reply      *ReviewReply     `json:"reply,omitempty"`
	Moderation ModerationStatus `json:"moderation_status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Approved reports whether moderators let the review through.
func (r Review) Approved() bool {
	return r.Moderation == ModerationApproved
}

type ReviewMedia struct {
	Image string `json:"image,omitempty"`
	Video string `json:"video,omitempty"`
}

type ReviewReply struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewPage is one slice of a product's reviews. NextCursor is nil on the
// last page.
type ReviewPage struct {
	Items      []Review `json:"items"`
	NextCursor *string  `json:"next_cursor"`
}

type ReviewsQuery struct {
	ProductID string
	Limit     int
	Cursor    *string
}

type CreateReviewInput struct {
	ProductID string        `json:"product_id"`
	Title     string        `json:"title" validate:"required"`
	Body      string        `json:"body" validate:"required"`
	Rating    int           `json:"rating" validate:"min=1,max=5"`
	Media     []ReviewMedia `json:"media,omitempty"`
}
