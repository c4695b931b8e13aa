package sandbox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	cartsCollection       = "carts"
	reviewsCollection     = "reviews"
	ordersCollection      = "orders"
	backInStockCollection = "back_in_stock_requests"

	// DefaultCartTTL is how long an untouched cart survives.
	DefaultCartTTL = 90 * 24 * time.Hour
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// CreateIndexes prepares every collection the sandbox writes to. cartTTL
// expires carts by updated_at.
func CreateIndexes(ctx context.Context, db *mongo.Database, cartTTL time.Duration) error {
	if cartTTL <= 0 {
		cartTTL = DefaultCartTTL
	}
	plan := map[string][]mongo.IndexModel{
		cartsCollection: {
			{
				Keys:    bson.D{{Key: "session_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "updated_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(int32(cartTTL / time.Second)),
			},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
		backInStockCollection: {
			{
				Keys: bson.D{
					{Key: "email", Value: 1},
					{Key: "product_id", Value: 1},
					{Key: "variant_key", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for name, indexes := range plan {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}
