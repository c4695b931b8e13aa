// Package backinstock subscribes shoppers to restock emails for products
// that are out of stock.
package backinstock

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

const (
	MsgAlreadySubscribed = "You're already subscribed to this product"
	MsgFailed            = "Something went wrong. Please, try again"
)

var ErrInvalidEmail = errors.New("backinstock: invalid email address")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request is what the shopper submits from a product page.
type Request struct {
	Email           string            `json:"email" validate:"required,email"`
	ItemURL         string            `json:"item_url"`
	Product         domain.Product    `json:"-" validate:"-"`
	SelectedOptions map[string]string `json:"selected_options"`
}

type Service struct {
	api      commerce.BackInStockAPI
	notifier notify.Notifier
}

func NewService(api commerce.BackInStockAPI, notifier notify.Notifier) *Service {
	return &Service{api: api, notifier: notifier}
}

// Subscribe registers the request. A matching variant is referenced by id;
// otherwise the raw selected options are sent.
func (s *Service) Subscribe(ctx context.Context, req Request) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return ErrInvalidEmail
	}

	out := domain.BackInStockRequest{
		Email:       req.Email,
		ItemURL:     req.ItemURL,
		ProductID:   req.Product.ID,
		ProductName: req.Product.Name,
		ImageURL:    req.Product.ImageURL,
	}
	if !req.Product.DiscountPrice.IsZero() {
		out.Price = req.Product.DiscountPrice.StringFixed(2)
	} else {
		out.Price = req.Product.Price.StringFixed(2)
	}
	if v, ok := req.Product.FindVariant(req.SelectedOptions); ok {
		out.VariantID = v.ID
	} else {
		out.SelectedOptions = req.SelectedOptions
	}

	if err := s.api.CreateBackInStockRequest(ctx, out); err != nil {
		logger.Printf(ctx, "back in stock request for %s: %v", req.Product.ID, err)
		if commerce.HasApplicationCode(err, commerce.CodeBackInStockAlreadyExists) {
			s.notifier.Notify(ctx, notify.Error(MsgAlreadySubscribed))
		} else {
			s.notifier.Notify(ctx, notify.Error(MsgFailed))
		}
		return fmt.Errorf("create back in stock request: %w", err)
	}
	return nil
}
