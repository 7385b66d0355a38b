package pricing

import (
	"errors"
	"math"
)

const (
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold = 999.0
	// FlatShippingFee applies below the free-shipping threshold.
	FlatShippingFee = 99.0
	// TaxRate applies to the discounted subtotal.
	TaxRate = 0.18
)

var ErrInvalidLineItem = errors.New("pricing: line item has quantity < 1 or negative unit price")

type LineItem struct {
	UnitPrice float64
	Quantity  int
}

// Breakdown is the computed price of a checkout.
// Total == Subtotal + ShippingCharges + Tax - Discount always holds.
type Breakdown struct {
	Subtotal        float64 `json:"subtotal"`
	ShippingCharges float64 `json:"shipping_charges"`
	Tax             float64 `json:"tax"`
	Discount        float64 `json:"discount"`
	Total           float64 `json:"total"`
}

// Compute prices the given line items with an already-determined discount.
// Pure function, no I/O. The discount is clamped to [0, subtotal].
func Compute(items []LineItem, discount float64) (Breakdown, error) {
	var subtotal float64
	for _, item := range items {
		if item.Quantity < 1 || item.UnitPrice < 0 {
			return Breakdown{}, ErrInvalidLineItem
		}
		subtotal += item.UnitPrice * float64(item.Quantity)
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	shipping := FlatShippingFee
	if subtotal >= FreeShippingThreshold {
		shipping = 0
	}

	tax := roundHalfUp((subtotal - discount) * TaxRate)

	return Breakdown{
		Subtotal:        subtotal,
		ShippingCharges: shipping,
		Tax:             tax,
		Discount:        discount,
		Total:           subtotal + shipping + tax - discount,
	}, nil
}

// MinorUnits converts a currency amount to the gateway's minor units (paise).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// roundHalfUp rounds to the nearest whole currency unit, halves up.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
