package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestCartClone_DoesNotShareState(t *testing.T) {
	cart := &Cart{
		ID: "cart-1",
		LineItems: []LineItem{
			{ID: "li-1", Quantity: 2, Availability: Availability{Quantity: intPtr(5)}},
		},
		Subtotal: NewSubtotal(decimal.RequireFromString("19.90"), "USD"),
	}

	clone := cart.Clone()
	clone.LineItems[0].Quantity = 9
	*clone.LineItems[0].Availability.Quantity = 1
	*clone.Subtotal.Amount = decimal.Zero

	assert.Equal(t, 2, cart.LineItems[0].Quantity)
	assert.Equal(t, "19.9", cart.Subtotal.Amount.String())
	assert.Equal(t, 5, *cart.LineItems[0].Availability.Quantity)
	assert.Nil(t, (*Cart)(nil).Clone())
}

func TestSubtotalDisplay(t *testing.T) {
	assert.Equal(t, SubtotalPlaceholder, ProvisionalSubtotal().Display())
	assert.Equal(t, "$19.90", Subtotal{Formatted: "$19.90"}.Display())
	amount := decimal.RequireFromString("19.9")
	assert.Equal(t, "19.90 USD", Subtotal{Amount: &amount, Currency: "USD"}.Display())
	assert.Equal(t, "19.90 USD", NewSubtotal(amount, "USD").Display())
}

func TestProvisionalSubtotal_CarriesNoAmount(t *testing.T) {
	data, err := json.Marshal(ProvisionalSubtotal())
	require.NoError(t, err)
	assert.JSONEq(t, `{"formatted":"Calculating...","provisional":true}`, string(data))

	var back Subtotal
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.Amount)
	assert.True(t, back.Provisional)

	data, err = json.Marshal(Cart{ID: "c", Subtotal: ProvisionalSubtotal()})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"amount"`)
}

func TestLineItemMaxQuantity(t *testing.T) {
	_, bounded := LineItem{}.MaxQuantity()
	assert.False(t, bounded)

	max, bounded := LineItem{Availability: Availability{Quantity: intPtr(3)}}.MaxQuantity()
	require.True(t, bounded)
	assert.Equal(t, 3, max)
}

func TestFindVariant(t *testing.T) {
	p := Product{Variants: []Variant{
		{ID: "v-small", Choices: map[string]string{"Size": "S"}},
		{ID: "v-large-red", Choices: map[string]string{"Size": "L", "Color": "Red"}},
	}}

	v, ok := p.FindVariant(map[string]string{"Size": "L", "Color": "Red"})
	require.True(t, ok)
	assert.Equal(t, "v-large-red", v.ID)

	_, ok = p.FindVariant(map[string]string{"Size": "L"})
	assert.False(t, ok)

	_, ok = p.FindVariant(nil)
	assert.False(t, ok)
}
