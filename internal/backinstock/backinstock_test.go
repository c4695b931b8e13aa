package backinstock

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	m    sync.RWMutex
	err  error
	reqs []domain.BackInStockRequest
}

func (m *mockAPI) CreateBackInStockRequest(_ context.Context, req domain.BackInStockRequest) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.reqs = append(m.reqs, req)
	return m.err
}

func shirt() domain.Product {
	return domain.Product{
		ID:            "p-1",
		Name:          "Shirt",
		Price:         decimal.RequireFromString("25"),
		DiscountPrice: decimal.RequireFromString("19.9"),
		ImageURL:      "https://img/shirt.png",
		Variants: []domain.Variant{
			{ID: "v-red-m", Choices: map[string]string{"Color": "Red", "Size": "M"}},
		},
	}
}

func TestSubscribe_ResolvesVariant(t *testing.T) {
	api := &mockAPI{}
	s := NewService(api, notify.NewQueue(0))

	err := s.Subscribe(context.Background(), Request{
		Email:           " jane@example.com ",
		ItemURL:         "https://shop/products/shirt",
		Product:         shirt(),
		SelectedOptions: map[string]string{"Color": "Red", "Size": "M"},
	})
	require.NoError(t, err)
	require.Len(t, api.reqs, 1)

	got := api.reqs[0]
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, "v-red-m", got.VariantID)
	assert.Nil(t, got.SelectedOptions)
	assert.Equal(t, "19.90", got.Price)
	assert.Equal(t, "Shirt", got.ProductName)
}

func TestSubscribe_FallsBackToOptions(t *testing.T) {
	api := &mockAPI{}
	s := NewService(api, notify.NewQueue(0))
	opts := map[string]string{"Color": "Blue"}

	require.NoError(t, s.Subscribe(context.Background(), Request{Email: "a@b.co", Product: shirt(), SelectedOptions: opts}))
	assert.Empty(t, api.reqs[0].VariantID)
	assert.Equal(t, opts, api.reqs[0].SelectedOptions)
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	api := &mockAPI{}
	queue := notify.NewQueue(0)
	s := NewService(api, queue)

	for _, email := range []string{"", "   ", "not-an-email", "jane@", "Jane <jane@example.com>", "jane doe@example.com"} {
		err := s.Subscribe(context.Background(), Request{Email: email, Product: shirt()})
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
	assert.Empty(t, api.reqs)
	assert.Zero(t, queue.Len())
}

func TestSubscribe_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "already subscribed",
			err: &commerce.RemoteError{Status: http.StatusConflict, Body: commerce.ErrorBody{
				Details: commerce.ErrorDetails{ApplicationError: &commerce.ApplicationError{Code: commerce.CodeBackInStockAlreadyExists}},
			}},
			want: MsgAlreadySubscribed,
		},
		{name: "other failure", err: errors.New("timeout"), want: MsgFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := notify.NewQueue(0)
			s := NewService(&mockAPI{err: tt.err}, queue)

			err := s.Subscribe(context.Background(), Request{Email: "a@b.co", Product: shirt()})
			require.Error(t, err)

			notes := queue.Drain()
			require.Len(t, notes, 1)
			assert.Equal(t, tt.want, notes[0].Message)
			assert.Equal(t, notify.VariantDestructive, notes[0].Variant)
		})
	}
}
