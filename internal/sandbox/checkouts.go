package sandbox

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrCheckoutNotFound  = errors.New("checkout not found")
	ErrCheckoutCompleted = errors.New("checkout already completed")
)

// Checkout is a pending payment for a cart or a single product.
type Checkout struct {
	ID        string            `json:"id"`
	Owner     string            `json:"-"`
	CartID    string            `json:"cart_id,omitempty"`
	LineItems []domain.LineItem `json:"line_items"`
	Total     domain.Money      `json:"total"`
	Completed bool              `json:"completed"`
	OrderID   string            `json:"order_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Checkouts struct {
	mu       sync.Mutex
	sessions map[string]*Checkout
}

func NewCheckouts() *Checkouts {
	return &Checkouts{sessions: make(map[string]*Checkout)}
}

// Start snapshots items for owner. cartID is empty for a single product
// purchase.
func (c *Checkouts) Start(owner, cartID string, items []domain.LineItem) Checkout {
	co := &Checkout{
		ID:        uuid.NewString(),
		Owner:     owner,
		CartID:    cartID,
		LineItems: items,
		CreatedAt: time.Now().UTC(),
	}
	for _, li := range items {
		line := li.Price.Times(li.Quantity)
		co.Total.Currency = line.Currency
		co.Total.Amount = co.Total.Amount.Add(line.Amount)
	}

	c.mu.Lock()
	c.sessions[co.ID] = co
	c.mu.Unlock()
	return *co
}

func (c *Checkouts) Get(id string) (Checkout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	co, ok := c.sessions[id]
	if !ok {
		return Checkout{}, ErrCheckoutNotFound
	}
	return *co, nil
}

// Complete marks the checkout paid exactly once.
func (c *Checkouts) Complete(id, orderID string) (Checkout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	co, ok := c.sessions[id]
	if !ok {
		return Checkout{}, ErrCheckoutNotFound
	}
	if co.Completed {
		return Checkout{}, ErrCheckoutCompleted
	}
	co.Completed = true
	co.OrderID = orderID
	return *co, nil
}
