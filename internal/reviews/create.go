package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/notify"
)

const MsgCreateFailed = "Failed to create review. Please try again."

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrTitleRequired = errors.New("title is required")
	ErrBodyRequired  = errors.New("body is required")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldErrors maps failed fields to their errors, most important first.
var fieldErrors = []struct {
	field string
	err   error
}{
	{"Rating", ErrInvalidRating},
	{"Title", ErrTitleRequired},
	{"Body", ErrBodyRequired},
}

type Creator struct {
	api      commerce.ReviewsAPI
	notifier notify.Notifier
}

func NewCreator(api commerce.ReviewsAPI, notifier notify.Notifier) *Creator {
	return &Creator{api: api, notifier: notifier}
}

// Validate checks the fields a reviewer must fill in. Blank text counts as
// missing.
func Validate(input domain.CreateReviewInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Body = strings.TrimSpace(input.Body)

	err := validate.Struct(input)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range fieldErrors {
		for _, v := range verrs {
			if v.StructField() == fe.field {
				return fe.err
			}
		}
	}
	return fmt.Errorf("invalid review: %w", err)
}

// Create submits a review together with its uploaded attachments; anything
// not uploaded is skipped. Validation errors are returned without notifying,
// remote failures notify the session.
func (c *Creator) Create(ctx context.Context, input domain.CreateReviewInput, attachments []domain.Attachment) (*domain.Review, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}
	for _, a := range attachments {
		if a.State != domain.AttachmentUploaded || a.URL == "" {
			continue
		}
		if strings.HasPrefix(a.MimeType, "video/") {
			input.Media = append(input.Media, domain.ReviewMedia{Video: a.URL})
		} else {
			input.Media = append(input.Media, domain.ReviewMedia{Image: a.URL})
		}
	}

	review, err := c.api.CreateReview(ctx, input)
	if err != nil {
		logger.Printf(ctx, "create review for product %s: %v", input.ProductID, err)
		c.notifier.Notify(ctx, notify.Error(MsgCreateFailed))
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}
