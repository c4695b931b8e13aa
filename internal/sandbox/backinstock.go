package sandbox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fjod/storefront/internal/domain"
)

type backInStockDocument struct {
	Email           string            `bson:"email"`
	ItemURL         string            `bson:"item_url"`
	ProductID       string            `bson:"product_id"`
	VariantKey      string            `bson:"variant_key"`
	VariantID       string            `bson:"variant_id,omitempty"`
	SelectedOptions map[string]string `bson:"selected_options,omitempty"`
	ProductName     string            `bson:"product_name,omitempty"`
	Price           string            `bson:"price,omitempty"`
	ImageURL        string            `bson:"image_url,omitempty"`
	CreatedAt       time.Time         `bson:"created_at"`
}

type mongoBackInStockRepository struct {
	collection *mongo.Collection
}

func NewMongoBackInStockRepository(db *mongo.Database) BackInStockRepository {
	return &mongoBackInStockRepository{collection: db.Collection(backInStockCollection)}
}

func (m *mongoBackInStockRepository) CreateBackInStockRequest(ctx context.Context, req domain.BackInStockRequest) error {
	doc := backInStockDocument{
		Email:           req.Email,
		ItemURL:         req.ItemURL,
		ProductID:       req.ProductID,
		VariantKey:      requestVariantKey(req),
		VariantID:       req.VariantID,
		SelectedOptions: req.SelectedOptions,
		ProductName:     req.ProductName,
		Price:           req.Price,
		ImageURL:        req.ImageURL,
		CreatedAt:       time.Now().UTC(),
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create back in stock request: %w", err)
	}
	return nil
}

// requestVariantKey prefers the variant id and falls back to the chosen
// options.
func requestVariantKey(req domain.BackInStockRequest) string {
	if req.VariantID != "" {
		return req.VariantID
	}
	return variantKey(optionLabels(req.SelectedOptions))
}
