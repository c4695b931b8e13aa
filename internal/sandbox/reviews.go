package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/storefront/internal/domain"
)

const maxReviewsLimit = 100

type reviewDocument struct {
	ID         string          `bson:"_id"`
	ProductID  string          `bson:"product_id"`
	AuthorName string          `bson:"author_name,omitempty"`
	Rating     int             `bson:"rating"`
	Title      string          `bson:"title,omitempty"`
	Body       string          `bson:"body,omitempty"`
	Media      []mediaDocument `bson:"media,omitempty"`
	Reply      *replyDocument  `bson:"reply,omitempty"`
	Moderation string          `bson:"moderation_status"`
	CreatedAt  time.Time       `bson:"created_at"`
}

type mediaDocument struct {
	Image string `bson:"image,omitempty"`
	Video string `bson:"video,omitempty"`
}

type replyDocument struct {
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"created_at"`
}

func newReviewDocument(r *domain.Review) reviewDocument {
	doc := reviewDocument{
		ID:         r.ID,
		ProductID:  r.ProductID,
		AuthorName: r.AuthorName,
		Rating:     r.Rating,
		Title:      r.Title,
		Body:       r.Body,
		Moderation: string(r.Moderation),
		CreatedAt:  r.CreatedAt,
	}
	for _, m := range r.Media {
		doc.Media = append(doc.Media, mediaDocument{Image: m.Image, Video: m.Video})
	}
	if r.Reply != nil {
		doc.Reply = &replyDocument{Message: r.Reply.Message, CreatedAt: r.Reply.CreatedAt}
	}
	return doc
}

func (d reviewDocument) toDomain() domain.Review {
	r := domain.Review{
		ID:         d.ID,
		ProductID:  d.ProductID,
		AuthorName: d.AuthorName,
		Rating:     d.Rating,
		Title:      d.Title,
		Body:       d.Body,
		Moderation: domain.ModerationStatus(d.Moderation),
		CreatedAt:  d.CreatedAt,
	}
	for _, m := range d.Media {
		r.Media = append(r.Media, domain.ReviewMedia{Image: m.Image, Video: m.Video})
	}
	if d.Reply != nil {
		r.Reply = &domain.ReviewReply{Message: d.Reply.Message, CreatedAt: d.Reply.CreatedAt}
	}
	return r
}

type mongoReviewRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoReviewRepository(db *mongo.Database) ReviewRepository {
	return &mongoReviewRepository{
		collection: db.Collection(reviewsCollection),
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// ListReviews returns up to limit reviews of a product in every moderation
// state. next is empty on the last page.
func (m *mongoReviewRepository) ListReviews(ctx context.Context, productID string, limit int, cursor string) ([]domain.Review, string, error) {
	if limit <= 0 || limit > maxReviewsLimit {
		limit = maxReviewsLimit
	}
	filter := bson.M{"product_id": productID}
	if cursor != "" {
		c, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		filter = c.after(filter)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))

	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query reviews: %w", err)
	}
	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, "", fmt.Errorf("failed to decode reviews: %w", err)
	}

	var next string
	if len(docs) > limit {
		docs = docs[:limit]
		last := docs[len(docs)-1]
		next = pageCursor{CreatedAt: last.CreatedAt, ID: last.ID}.encode()
	}

	out := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, next, nil
}

// CreateReview fills in the id and creation time before inserting.
func (m *mongoReviewRepository) CreateReview(ctx context.Context, review *domain.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = m.now()
	}
	if _, err := m.collection.InsertOne(ctx, newReviewDocument(review)); err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}
