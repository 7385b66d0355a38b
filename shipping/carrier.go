package shipping

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

var ErrFulfillmentUnavailable = errors.New("shipping: carrier unavailable")

// Shipment is what the carrier assigns to a pushed order.
type Shipment struct {
	CarrierOrderID    string     `json:"carrier_order_id"`
	TrackingNumber    string     `json:"tracking_number"`
	TrackingURL       string     `json:"tracking_url"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// Carrier is the shipping-aggregator surface the order flow depends on.
type Carrier interface {
	CreateShipment(ctx context.Context, order *models.Order) (*Shipment, error)
	TrackShipment(ctx context.Context, trackingNumber string) (string, error)
	CancelShipment(ctx context.Context, trackingNumber string) error
}

// WebhookPayload is the carrier's at-least-once tracking update.
type WebhookPayload struct {
	AWB           string `json:"awb"`
	CurrentStatus string `json:"current_status"`
	DeliveredDate string `json:"delivered_date,omitempty"`
	PickupDate    string `json:"pickup_date,omitempty"`
}

// MapCarrierStatus translates the carrier's status vocabulary into the order
// lifecycle. Anything unrecognized maps to processing.
func MapCarrierStatus(carrierStatus string) models.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(carrierStatus)) {
	case "shipped", "in transit", "in_transit":
		return models.OrderStatusShipped
	case "out for delivery", "out_for_delivery":
		return models.OrderStatusOutForDelivery
	case "delivered":
		return models.OrderStatusDelivered
	case "cancelled", "canceled", "rto", "rto initiated":
		return models.OrderStatusCancelled
	default:
		return models.OrderStatusProcessing
	}
}
