package domain

import (
	"github.com/shopspring/decimal"
)

// SubtotalPlaceholder is shown while an optimistic cart edit waits for the
// platform to recompute totals.
const SubtotalPlaceholder = "Calculating..."

type Cart struct {
	ID        string     `json:"id"`
	LineItems []LineItem `json:"line_items"`
	Subtotal  Subtotal   `json:"subtotal"`
}

type LineItem struct {
	ID           string       `json:"id"`
	ProductID    string       `json:"product_id"`
	ProductName  string       `json:"product_name"`
	Slug         string       `json:"slug,omitempty"`
	ImageURL     string       `json:"image_url,omitempty"`
	Quantity     int          `json:"quantity"`
	Price        Money        `json:"price"`
	Availability Availability `json:"availability"`
	Options      []string     `json:"options,omitempty"`
}

type AvailabilityStatus string

const (
	AvailabilityAvailable        AvailabilityStatus = "AVAILABLE"
	AvailabilityNotAvailable     AvailabilityStatus = "NOT_AVAILABLE"
	AvailabilityPartiallyInStock AvailabilityStatus = "AVAILABLE_PARTIALLY"
)

// Availability is the platform's stock snapshot for a line item. A nil
// Quantity means the platform reports no upper bound.
type Availability struct {
	Status   AvailabilityStatus `json:"status"`
	Quantity *int               `json:"quantity,omitempty"`
}

// Subtotal is the platform's cart total. A provisional subtotal carries no
// amount at all, so no client can show a stale number.
type Subtotal struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	Formatted   string           `json:"formatted"`
	Provisional bool             `json:"provisional"`
}

// NewSubtotal is a settled subtotal of amount.
func NewSubtotal(amount decimal.Decimal, currency string) Subtotal {
	return Subtotal{
		Amount:    &amount,
		Currency:  currency,
		Formatted: Money{Amount: amount, Currency: currency}.String(),
	}
}

// ProvisionalSubtotal is the placeholder used in place of a stale total.
func ProvisionalSubtotal() Subtotal {
	return Subtotal{Formatted: SubtotalPlaceholder, Provisional: true}
}

// Display returns the text a customer sees for the subtotal.
func (s Subtotal) Display() string {
	switch {
	case s.Provisional:
		return SubtotalPlaceholder
	case s.Formatted != "":
		return s.Formatted
	case s.Amount == nil:
		return ""
	default:
		return Money{Amount: *s.Amount, Currency: s.Currency}.String()
	}
}

// MaxQuantity reports the availability bound, if the platform sent one.
func (li LineItem) MaxQuantity() (int, bool) {
	if li.Availability.Quantity == nil {
		return 0, false
	}
	return *li.Availability.Quantity, true
}

// Clone returns a deep copy so snapshots never share backing arrays or
// availability pointers with the live value.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	if c.Subtotal.Amount != nil {
		a := *c.Subtotal.Amount
		out.Subtotal.Amount = &a
	}
	if c.LineItems != nil {
		out.LineItems = make([]LineItem, len(c.LineItems))
		for i, li := range c.LineItems {
			out.LineItems[i] = li.clone()
		}
	}
	return &out
}

func (li LineItem) clone() LineItem {
	out := li
	if li.Availability.Quantity != nil {
		q := *li.Availability.Quantity
		out.Availability.Quantity = &q
	}
	if li.Options != nil {
		out.Options = append([]string(nil), li.Options...)
	}
	return out
}

// LineItem returns the item with the given id.
func (c *Cart) LineItem(id string) (LineItem, bool) {
	if c == nil {
		return LineItem{}, false
	}
	for _, li := range c.LineItems {
		if li.ID == id {
			return li, true
		}
	}
	return LineItem{}, false
}

// TotalQuantity is the number of units across all line items.
func (c *Cart) TotalQuantity() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, li := range c.LineItems {
		total += li.Quantity
	}
	return total
}

type AddToCartInput struct {
	ProductID       string            `json:"product_id"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	Quantity        int               `json:"quantity"`
}
