// Package staging holds the transient pending-order snapshot between
// "gateway order created" and "payment verified". One slot per user,
// last writer wins, entries expire with the gateway order.
package staging

import (
	"context"
	"errors"
	"time"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

// SlotTTL matches the gateway-side order expiry; a stage older than this can
// never be reconciled anyway.
const SlotTTL = 30 * time.Minute

var ErrNoPendingOrder = errors.New("staging: no pending order for user")

// PendingOrder is the staged checkout snapshot. Nothing durable exists for
// the checkout until payment verification promotes it to an Order.
type PendingOrder struct {
	UserID          string             `json:"user_id"`
	Items           []models.OrderItem `json:"items"`
	ShippingAddress models.Address     `json:"shipping_address"`

	Subtotal        float64 `json:"subtotal"`
	ShippingCharges float64 `json:"shipping_charges"`
	Tax             float64 `json:"tax"`
	Discount        float64 `json:"discount"`
	Total           float64 `json:"total"`

	CouponCode     string    `json:"coupon_code,omitempty"`
	GatewayOrderID string    `json:"gateway_order_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the single-slot staging area keyed by user id.
type Store interface {
	// Put stages a pending order, overwriting any prior stage for the user.
	Put(ctx context.Context, pending *PendingOrder) error
	// Get returns the staged order or ErrNoPendingOrder.
	Get(ctx context.Context, userID string) (*PendingOrder, error)
	// Clear removes the user's slot; clearing an empty slot is a no-op.
	Clear(ctx context.Context, userID string) error
}

// ReplayGuard records processed webhook deliveries so exact duplicates can be
// short-circuited before touching order state. Checking and marking are
// separate: a delivery is marked only once it has been handled, so a failed
// handling stays eligible for redelivery.
type ReplayGuard interface {
	// Seen reports whether key was already marked as processed.
	Seen(ctx context.Context, key string) (bool, error)
	// Mark records key as processed.
	Mark(ctx context.Context, key string) error
}
