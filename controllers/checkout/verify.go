package checkoutControllers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/coupons"
	"github.com/mayurimulay789/e-commerce21-sub001/events"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/notifications"
	"github.com/mayurimulay789/e-commerce21-sub001/payments"
	"github.com/mayurimulay789/e-commerce21-sub001/shipping"
	"github.com/mayurimulay789/e-commerce21-sub001/staging"
)

var ErrSignatureMismatch = errors.New("checkout: payment signature mismatch")

// Deps bundles everything payment reconciliation touches.
type Deps struct {
	DB       *gorm.DB
	Stage    staging.Store
	Guard    staging.ReplayGuard
	Gateway  payments.Gateway
	Carrier  shipping.Carrier
	Events   *events.Publisher
	Notifier notifications.Notifier
	// Broadcast pushes order updates to the admin websocket feed; nil-safe.
	Broadcast func(*models.Order)
}

func (d Deps) broadcast(order *models.Order) {
	if d.Broadcast != nil {
		d.Broadcast(order)
	}
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	GatewaySignature string `json:"gateway_signature" binding:"required"`
}

// generateOrderNumber builds a time-based, uniquely-suffixed order number.
// Uniqueness is enforced by the index on orders.order_number.
func generateOrderNumber(now time.Time) string {
	return "ORD-" + now.Format("20060102150405") + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// VerifyAndFinalize is the single commit point of the checkout flow: it
// authenticates the gateway callback, promotes the staged snapshot to a
// durable order, decrements stock, commits the coupon redemption and clears
// the staging slot. Shipment creation and notification are non-fatal.
func VerifyAndFinalize(ctx context.Context, d Deps, userID string, req VerifyPaymentRequest) (*models.Order, error) {
	secret := os.Getenv("RAZORPAY_KEY_SECRET")
	if !payments.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature, secret) {
		// Reject before touching any persisted state. Logged with payload
		// context for fraud review.
		logger.Warn().
			Str("user", userID).
			Str("gateway_order", req.GatewayOrderID).
			Str("gateway_payment", req.GatewayPaymentID).
			Msg("payment signature mismatch")
		return nil, ErrSignatureMismatch
	}

	pending, err := d.Stage.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	// A stale or replayed callback for an overwritten stage reconciles nothing.
	if pending.GatewayOrderID != req.GatewayOrderID {
		return nil, staging.ErrNoPendingOrder
	}

	now := time.Now()
	order := &models.Order{
		OrderNumber:      generateOrderNumber(now),
		UserID:           userID,
		Items:            pending.Items,
		ShippingAddress:  pending.ShippingAddress,
		GatewayOrderID:   pending.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		GatewaySignature: req.GatewaySignature,
		PaymentStatus:    models.PaymentStatusCompleted,
		Subtotal:         pending.Subtotal,
		ShippingCharges:  pending.ShippingCharges,
		Tax:              pending.Tax,
		Discount:         pending.Discount,
		Total:            pending.Total,
		CouponCode:       pending.CouponCode,
		Status:           models.OrderStatusConfirmed,
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		// Best-effort conditional decrements: stock going stale is logged,
		// never unwinds a paid order.
		for _, item := range order.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				logger.Warn().
					Uint("product", item.ProductID).
					Int("quantity", item.Quantity).
					Str("order", order.OrderNumber).
					Msg("stock decrement skipped, counter stale")
			}
		}

		// Single commit point for the coupon. A failed conditional commit
		// degrades to a discount-application failure; the paid order stands.
		if order.CouponCode != "" {
			coupon, err := coupons.Lookup(tx, order.CouponCode)
			if err != nil {
				logger.Warn().Err(err).Str("order", order.OrderNumber).Msg("coupon vanished between preview and commit")
			} else {
				tx.SavePoint("coupon_commit")
				if err := coupons.CommitRedemption(tx, coupon, userID, now); err != nil {
					tx.RollbackTo("coupon_commit")
					logger.Warn().Err(err).
						Str("order", order.OrderNumber).
						Str("coupon", order.CouponCode).
						Msg("coupon commit rejected at verification")
				} else {
					order.CouponCommitted = true
					if err := tx.Model(order).UpdateColumn("coupon_committed", true).Error; err != nil {
						return err
					}
				}
			}
		}

		// Clear the user's cart; the purchase consumed it.
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err == nil {
			if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := d.Stage.Clear(ctx, userID); err != nil {
		logger.Warn().Err(err).Str("user", userID).Msg("failed to clear staging slot")
	}

	logger.Info().
		Str("order", order.OrderNumber).
		Str("user", userID).
		Float64("total", order.Total).
		Msg("order confirmed")

	// Fulfillment, notification, events and the admin feed are all
	// non-critical: failures are logged and swallowed.
	go createShipmentAsync(d, order.ID)

	if d.Notifier != nil {
		if err := d.Notifier.OrderConfirmed(ctx, order); err != nil {
			logger.Warn().Err(err).Str("order", order.OrderNumber).Msg("confirmation notification failed")
		}
	}
	d.Events.OrderStatusChanged(ctx, "order.confirmed", order)
	d.broadcast(order)

	return order, nil
}

// createShipmentAsync pushes the order to the carrier outside the request.
// Failure leaves tracking info absent; the order is already durable.
func createShipmentAsync(d Deps, orderID uint) {
	if d.Carrier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var order models.Order
	if err := d.DB.Preload("Items").First(&order, orderID).Error; err != nil {
		logger.Error().Err(err).Uint("order_id", orderID).Msg("shipment: order load failed")
		return
	}

	shipment, err := d.Carrier.CreateShipment(ctx, &order)
	if err != nil {
		logger.Warn().Err(err).Str("order", order.OrderNumber).Msg("shipment creation failed")
		return
	}

	updates := map[string]interface{}{
		"tracking_number": shipment.TrackingNumber,
		"tracking_url":    shipment.TrackingURL,
		"status":          models.OrderStatusProcessing,
	}
	if shipment.EstimatedDelivery != nil {
		updates["estimated_delivery"] = shipment.EstimatedDelivery
	}
	if err := d.DB.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("shipment: tracking update failed")
		return
	}

	order.TrackingNumber = shipment.TrackingNumber
	order.TrackingURL = shipment.TrackingURL
	order.Status = models.OrderStatusProcessing
	d.Events.OrderStatusChanged(ctx, "order.status_changed", &order)
	d.broadcast(&order)
}

// -------- Handlers --------

// VerifyPaymentHandler finalizes the authenticated user's staged checkout.
func VerifyPaymentHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		order, err := VerifyAndFinalize(c.Request.Context(), d, userID, req)
		if err != nil {
			switch {
			case errors.Is(err, ErrSignatureMismatch):
				// Deliberately generic; signature mechanics stay opaque.
				c.JSON(http.StatusUnauthorized, gin.H{"error": "payment verification failed"})
			case errors.Is(err, staging.ErrNoPendingOrder):
				c.JSON(http.StatusNotFound, gin.H{"error": "no pending order to verify"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to finalize order"})
			}
			return
		}

		c.JSON(http.StatusOK, order)
	}
}
