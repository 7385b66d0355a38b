package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBalances(t *testing.T) {
	tests := []struct {
		name     string
		items    []LineItem
		discount float64
	}{
		{"single item", []LineItem{{UnitPrice: 499, Quantity: 1}}, 0},
		{"multiple items", []LineItem{{UnitPrice: 250, Quantity: 2}, {UnitPrice: 120, Quantity: 3}}, 0},
		{"with discount", []LineItem{{UnitPrice: 400, Quantity: 2}}, 80},
		{"discount larger than subtotal clamps", []LineItem{{UnitPrice: 100, Quantity: 1}}, 500},
		{"zero price item", []LineItem{{UnitPrice: 0, Quantity: 1}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Compute(tt.items, tt.discount)
			require.NoError(t, err)
			assert.Equal(t, b.Total, b.Subtotal+b.ShippingCharges+b.Tax-b.Discount)
			assert.GreaterOrEqual(t, b.Subtotal, 0.0)
			assert.GreaterOrEqual(t, b.ShippingCharges, 0.0)
			assert.GreaterOrEqual(t, b.Tax, 0.0)
			assert.GreaterOrEqual(t, b.Discount, 0.0)
			assert.GreaterOrEqual(t, b.Total, 0.0)
			assert.LessOrEqual(t, b.Discount, b.Subtotal)
		})
	}
}

func TestShippingThreshold(t *testing.T) {
	below, err := Compute([]LineItem{{UnitPrice: 998, Quantity: 1}}, 0)
	require.NoError(t, err)
	assert.Equal(t, FlatShippingFee, below.ShippingCharges)

	at, err := Compute([]LineItem{{UnitPrice: 999, Quantity: 1}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, at.ShippingCharges)

	above, err := Compute([]LineItem{{UnitPrice: 600, Quantity: 2}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, above.ShippingCharges)
}

// Coupon SAVE10: 10% capped at 100 on subtotal 800 -> discount 80.
// Subtotal stays under the free-shipping threshold, so the flat fee
// applies: tax round(720*0.18)=130, total 800+99+130-80=949.
func TestScenarioPercentageCoupon(t *testing.T) {
	b, err := Compute([]LineItem{{UnitPrice: 800, Quantity: 1}}, 80)
	require.NoError(t, err)
	assert.Equal(t, 800.0, b.Subtotal)
	assert.Equal(t, FlatShippingFee, b.ShippingCharges)
	assert.Equal(t, 130.0, b.Tax)
	assert.Equal(t, 949.0, b.Total)
}

// Subtotal 500, no coupon -> shipping 99, tax 90, total 689.
func TestScenarioNoCoupon(t *testing.T) {
	b, err := Compute([]LineItem{{UnitPrice: 500, Quantity: 1}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 99.0, b.ShippingCharges)
	assert.Equal(t, 90.0, b.Tax)
	assert.Equal(t, 689.0, b.Total)
}

func TestInvalidLineItems(t *testing.T) {
	_, err := Compute([]LineItem{{UnitPrice: 100, Quantity: 0}}, 0)
	assert.ErrorIs(t, err, ErrInvalidLineItem)

	_, err = Compute([]LineItem{{UnitPrice: -1, Quantity: 1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(85000), MinorUnits(850))
	assert.Equal(t, int64(68900), MinorUnits(689))
	assert.Equal(t, int64(99950), MinorUnits(999.5))
}
