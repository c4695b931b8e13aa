package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discounted_price"`
	Currency      string          `json:"currency"`
	ImageURL      string          `json:"image_url,omitempty"`
	Visible       bool            `json:"visible"`
	InStock       bool            `json:"in_stock"`
	CollectionIDs []string        `json:"collection_ids,omitempty"`
	Variants      []Variant       `json:"variants,omitempty"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// Variant is a purchasable combination of product options.
type Variant struct {
	ID      string            `json:"id"`
	Choices map[string]string `json:"choices"`
	InStock bool              `json:"in_stock"`
}

// FindVariant returns the variant whose choices exactly match selected.
func (p Product) FindVariant(selected map[string]string) (Variant, bool) {
	if len(selected) == 0 {
		return Variant{}, false
	}
	for _, v := range p.Variants {
		if len(v.Choices) != len(selected) {
			continue
		}
		match := true
		for k, val := range selected {
			if v.Choices[k] != val {
				match = false
				break
			}
		}
		if match {
			return v, true
		}
	}
	return Variant{}, false
}

type Collection struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ProductsSort string

const (
	SortLastUpdated ProductsSort = "last_updated"
	SortPriceAsc    ProductsSort = "price_asc"
	SortPriceDesc   ProductsSort = "price_desc"
)

type PriceRange struct {
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

type ProductsQuery struct {
	Search        string       `json:"q,omitempty"`
	CollectionIDs []string     `json:"collection_ids,omitempty"`
	PriceRange    PriceRange   `json:"price_range"`
	Sort          ProductsSort `json:"sort,omitempty"`
	Skip          int          `json:"skip,omitempty"`
	Limit         int          `json:"limit,omitempty"`
}

type ProductsPage struct {
	Items      []Product `json:"items"`
	TotalCount int       `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}
