package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/storefront/internal/domain"
)

const maxOrdersLimit = 100

type orderDocument struct {
	ID        string             `bson:"_id"`
	Owner     string             `bson:"owner"`
	Number    string             `bson:"number"`
	Status    string             `bson:"status"`
	Currency  string             `bson:"currency"`
	Total     string             `bson:"total"`
	Items     []lineItemDocument `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d orderDocument) toDomain() (domain.Order, error) {
	total, err := decimal.NewFromString(d.Total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s total %q: %w", d.ID, d.Total, err)
	}
	cart, err := cartDocument{ID: d.ID, Currency: d.Currency, Items: d.Items}.toDomain()
	if err != nil {
		return domain.Order{}, err
	}
	return domain.Order{
		ID:        d.ID,
		Number:    d.Number,
		Status:    d.Status,
		LineItems: cart.LineItems,
		Total:     domain.Money{Amount: total, Currency: d.Currency},
		CreatedAt: d.CreatedAt,
	}, nil
}

type mongoOrderRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection(ordersCollection),
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (m *mongoOrderRepository) ListOrders(ctx context.Context, owner string, limit int, cursor string) ([]domain.Order, string, error) {
	if limit <= 0 || limit > maxOrdersLimit {
		limit = maxOrdersLimit
	}
	filter := bson.M{"owner": owner}
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
		return nil, "", fmt.Errorf("failed to query orders: %w", err)
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, "", fmt.Errorf("failed to decode orders: %w", err)
	}

	var next string
	if len(docs) > limit {
		docs = docs[:limit]
		last := docs[len(docs)-1]
		next = pageCursor{CreatedAt: last.CreatedAt, ID: last.ID}.encode()
	}

	out := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toDomain()
		if err != nil {
			return nil, "", err
		}
		out = append(out, o)
	}
	return out, next, nil
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, owner string, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = m.now()
	}
	doc := orderDocument{
		ID:        order.ID,
		Owner:     owner,
		Number:    order.Number,
		Status:    order.Status,
		Currency:  order.Total.Currency,
		Total:     order.Total.Amount.String(),
		CreatedAt: order.CreatedAt,
	}
	for _, li := range order.LineItems {
		doc.Items = append(doc.Items, newLineItemDocument(li))
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}
