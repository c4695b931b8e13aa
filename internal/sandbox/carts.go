package sandbox

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/storefront/internal/domain"
)

type cartDocument struct {
	ID        string             `bson:"_id"`
	SessionID string             `bson:"session_id"`
	Currency  string             `bson:"currency"`
	Items     []lineItemDocument `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type lineItemDocument struct {
	ID          string   `bson:"id"`
	ProductID   string   `bson:"product_id"`
	VariantKey  string   `bson:"variant_key"`
	ProductName string   `bson:"product_name"`
	Slug        string   `bson:"slug,omitempty"`
	ImageURL    string   `bson:"image_url,omitempty"`
	Quantity    int      `bson:"quantity"`
	Price       string   `bson:"price"`
	Stock       *int     `bson:"stock,omitempty"`
	Options     []string `bson:"options,omitempty"`
}

func newLineItemDocument(li domain.LineItem) lineItemDocument {
	return lineItemDocument{
		ID:          li.ID,
		ProductID:   li.ProductID,
		VariantKey:  variantKey(li.Options),
		ProductName: li.ProductName,
		Slug:        li.Slug,
		ImageURL:    li.ImageURL,
		Quantity:    li.Quantity,
		Price:       li.Price.Amount.String(),
		Stock:       li.Availability.Quantity,
		Options:     li.Options,
	}
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{ID: d.ID, LineItems: make([]domain.LineItem, 0, len(d.Items))}
	total := decimal.Zero
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, fmt.Errorf("line item %s price %q: %w", it.ID, it.Price, err)
		}
		li := domain.LineItem{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Slug:         it.Slug,
			ImageURL:     it.ImageURL,
			Quantity:     it.Quantity,
			Price:        domain.Money{Amount: price, Currency: d.Currency},
			Availability: availability(it.Stock),
			Options:      it.Options,
		}
		cart.LineItems = append(cart.LineItems, li)
		total = total.Add(li.Price.Times(li.Quantity).Amount)
	}
	cart.Subtotal = domain.NewSubtotal(total, d.Currency)
	return cart, nil
}

func availability(stock *int) domain.Availability {
	switch {
	case stock == nil:
		return domain.Availability{Status: domain.AvailabilityAvailable}
	case *stock <= 0:
		return domain.Availability{Status: domain.AvailabilityNotAvailable, Quantity: stock}
	default:
		return domain.Availability{Status: domain.AvailabilityAvailable, Quantity: stock}
	}
}

type mongoCartRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartsCollection),
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (m *mongoCartRepository) find(ctx context.Context, owner string) (*cartDocument, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"session_id": owner}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &doc, nil
}

func (m *mongoCartRepository) GetCart(ctx context.Context, owner string) (*domain.Cart, error) {
	doc, err := m.find(ctx, owner)
	if err != nil {
		return nil, err
	}
	return doc.toDomain()
}

// AddItem merges item into an existing line with the same product and
// options, or appends a new line. The cart is created on first use.
func (m *mongoCartRepository) AddItem(ctx context.Context, owner string, item domain.LineItem) (*domain.Cart, error) {
	if item.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := m.now()
	doc := newLineItemDocument(item)
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	filter := bson.M{"session_id": owner}

	existing, err := m.find(ctx, owner)
	if errors.Is(err, ErrCartNotFound) {
		cart := cartDocument{
			ID:        uuid.NewString(),
			SessionID: owner,
			Currency:  item.Price.Currency,
			Items:     []lineItemDocument{doc},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := m.collection.InsertOne(ctx, cart); err != nil {
			return nil, fmt.Errorf("failed to create cart with item: %w", err)
		}
		return cart.toDomain()
	}
	if err != nil {
		return nil, err
	}

	var match *lineItemDocument
	for i := range existing.Items {
		if existing.Items[i].ProductID == doc.ProductID && existing.Items[i].VariantKey == doc.VariantKey {
			match = &existing.Items[i]
			break
		}
	}

	if match != nil {
		update := bson.M{
			"$inc": bson.M{"items.$[elem].quantity": item.Quantity},
			"$set": bson.M{
				"items.$[elem].price": doc.Price,
				"items.$[elem].stock": doc.Stock,
				"updated_at":          now,
			},
		}
		arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"elem.id": match.ID}},
		})
		if _, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters); err != nil {
			return nil, fmt.Errorf("failed to update existing item: %w", err)
		}
	} else {
		update := bson.M{
			"$push": bson.M{"items": doc},
			"$set":  bson.M{"updated_at": now},
		}
		if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
			return nil, fmt.Errorf("failed to add new item: %w", err)
		}
	}

	return m.GetCart(ctx, owner)
}

func (m *mongoCartRepository) UpdateItemQuantity(ctx context.Context, owner, lineItemID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	filter := bson.M{
		"session_id": owner,
		"items.id":   lineItemID,
	}
	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             m.now(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.id": lineItemID}},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return nil, fmt.Errorf("failed to update item quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrItemNotFound
	}
	return m.GetCart(ctx, owner)
}

func (m *mongoCartRepository) RemoveItem(ctx context.Context, owner, lineItemID string) (*domain.Cart, error) {
	filter := bson.M{"session_id": owner, "items.id": lineItemID}
	update := bson.M{
		"$pull": bson.M{"items": bson.M{"id": lineItemID}},
		"$set":  bson.M{"updated_at": m.now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := m.find(ctx, owner); err != nil {
			return nil, err
		}
		return nil, ErrItemNotFound
	}
	return m.GetCart(ctx, owner)
}

func (m *mongoCartRepository) DeleteCart(ctx context.Context, owner string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"session_id": owner})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

// variantKey identifies the option combination of a line item regardless of
// option order.
func variantKey(options []string) string {
	sorted := slices.Clone(options)
	slices.Sort(sorted)
	return strings.Join(sorted, "|")
}

// optionLabels renders selected options as sorted "Name: Choice" labels.
func optionLabels(selected map[string]string) []string {
	if len(selected) == 0 {
		return nil
	}
	out := make([]string, 0, len(selected))
	for name, choice := range selected {
		out = append(out, name+": "+choice)
	}
	slices.Sort(out)
	return out
}
