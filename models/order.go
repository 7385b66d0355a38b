package models

import "time"

type OrderStatus string
type PaymentStatus string
type RefundStatus string

const (
	// Order lifecycle
	OrderStatusPending        OrderStatus = "pending"          // Staged, awaiting payment verification
	OrderStatusConfirmed      OrderStatus = "confirmed"        // Payment verified, order persisted
	OrderStatusProcessing     OrderStatus = "processing"       // Handed to fulfillment
	OrderStatusShipped        OrderStatus = "shipped"          // Carrier picked up
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery" // Last mile
	OrderStatusDelivered      OrderStatus = "delivered"        // Customer received the item
	OrderStatusCancelled      OrderStatus = "cancelled"        // Cancelled or payment failed
	OrderStatusRefunded       OrderStatus = "refunded"         // Fully refunded after return

	// Payment statuses
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"

	// Refund statuses
	RefundStatusNone      RefundStatus = ""
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
)

// orderTransitions is the forward order state machine. Cancel and refund are
// the only side branches; nothing moves backward.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
	OrderStatusDelivered:      {OrderStatusRefunded},
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s == next {
		return false
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID      string `gorm:"index;not null" json:"user_id"`
	User        User   `gorm:"foreignKey:UserID" json:"-"`

	// Immutable snapshot of the purchased items, captured at order time.
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`

	// Payment gateway correlation
	GatewayOrderID   string        `gorm:"uniqueIndex" json:"gateway_order_id"`
	GatewayPaymentID string        `gorm:"index" json:"gateway_payment_id"`
	GatewaySignature string        `json:"-"`
	PaymentStatus    PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`

	// Price breakdown; Total == Subtotal + ShippingCharges + Tax - Discount.
	Subtotal        float64 `json:"subtotal"`
	ShippingCharges float64 `json:"shipping_charges"`
	Tax             float64 `json:"tax"`
	Discount        float64 `json:"discount"`
	Total           float64 `json:"total"`

	// Applied-coupon snapshot. CouponCommitted records whether the redemption
	// counter was successfully incremented at verification time.
	CouponCode      string `json:"coupon_code,omitempty"`
	CouponCommitted bool   `json:"-"`

	Status OrderStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`

	// Fulfillment tracking
	TrackingNumber    string     `gorm:"index" json:"tracking_number,omitempty"`
	TrackingURL       string     `json:"tracking_url,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`

	RefundStatus RefundStatus `gorm:"type:VARCHAR(20)" json:"refund_status,omitempty"`

	CancelReason string     `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"index" json:"-"`
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}
