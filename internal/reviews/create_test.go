package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input domain.CreateReviewInput
		want  error
	}{
		{"ok", domain.CreateReviewInput{Rating: 4, Title: "t", Body: "b"}, nil},
		{"rating too low", domain.CreateReviewInput{Rating: 0, Title: "t", Body: "b"}, ErrInvalidRating},
		{"rating too high", domain.CreateReviewInput{Rating: 6, Title: "t", Body: "b"}, ErrInvalidRating},
		{"blank title", domain.CreateReviewInput{Rating: 3, Title: "  ", Body: "b"}, ErrTitleRequired},
		{"missing body", domain.CreateReviewInput{Rating: 3, Title: "t"}, ErrBodyRequired},
		{"blank body", domain.CreateReviewInput{Rating: 3, Title: "t", Body: "\n\t"}, ErrBodyRequired},
		{"rating reported first", domain.CreateReviewInput{Rating: 0}, ErrInvalidRating},
		{"title before body", domain.CreateReviewInput{Rating: 5}, ErrTitleRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreator_AttachesUploadedMedia(t *testing.T) {
	api := &mockReviewsAPI{}
	queue := notify.NewQueue(0)
	c := NewCreator(api, queue)

	review, err := c.Create(context.Background(), domain.CreateReviewInput{ProductID: "p-1", Rating: 5, Title: "Great", Body: "Loved it"},
		[]domain.Attachment{
			{ID: "a", MimeType: "image/png", URL: "https://files/a.png", State: domain.AttachmentUploaded},
			{ID: "b", MimeType: "video/mp4", URL: "https://files/b.mp4", State: domain.AttachmentUploaded},
			{ID: "c", MimeType: "image/png", State: domain.AttachmentFailed},
		})
	require.NoError(t, err)
	assert.Equal(t, "r-new", review.ID)

	require.Len(t, api.created, 1)
	assert.Equal(t, []domain.ReviewMedia{{Image: "https://files/a.png"}, {Video: "https://files/b.mp4"}}, api.created[0].Media)
	assert.Zero(t, queue.Len())
}

func TestCreator_RemoteFailureNotifies(t *testing.T) {
	api := &mockReviewsAPI{err: errors.New("down")}
	queue := notify.NewQueue(0)
	c := NewCreator(api, queue)

	_, err := c.Create(context.Background(), domain.CreateReviewInput{ProductID: "p-1", Rating: 5, Title: "t", Body: "b"}, nil)
	require.Error(t, err)

	notes := queue.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, MsgCreateFailed, notes[0].Message)
	assert.Equal(t, notify.VariantDestructive, notes[0].Variant)
}

func TestCreator_InvalidInputDoesNotCallRemote(t *testing.T) {
	api := &mockReviewsAPI{}
	queue := notify.NewQueue(0)

	_, err := NewCreator(api, queue).Create(context.Background(), domain.CreateReviewInput{Rating: 9}, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)
	assert.Empty(t, api.created)
	assert.Zero(t, queue.Len())
}
