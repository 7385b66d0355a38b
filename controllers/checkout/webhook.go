package checkoutControllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/payments"
	"github.com/mayurimulay789/e-commerce21-sub001/pricing"
)

// outcome classifies a webhook application so the fatal/non-fatal policy is
// uniform across handlers instead of ad hoc per event.
type outcome int

const (
	outcomeApplied outcome = iota
	outcomeSkipped         // unknown order or already in target state
	outcomeFailed          // storage error; upstream should redeliver
)

// PaymentWebhookHandler consumes gateway events. Deliveries are at-least-once
// and possibly out of order, so every transition is keyed by gateway ids and
// guarded by current state. Once the signature middleware has passed, the
// endpoint acknowledges fast regardless of non-critical failures.
func PaymentWebhookHandler(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawVal, _ := c.Get(middleware.ContextRawBody)
		raw, _ := rawVal.([]byte)

		var event payments.WebhookEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook body"})
			return
		}

		// Exact duplicate deliveries short-circuit before touching state.
		key := event.Event + ":" + event.Payload.Payment.Entity.ID + ":" + event.Payload.Refund.Entity.ID
		if d.Guard != nil {
			if seen, err := d.Guard.Seen(c.Request.Context(), key); err == nil && seen {
				logger.Info().Str("event", event.Event).Msg("duplicate webhook delivery skipped")
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
				return
			}
		}

		var result outcome
		switch event.Event {
		case payments.EventPaymentCaptured, payments.EventOrderPaid:
			result = applyPaymentCaptured(d, event.Payload.Payment.Entity)
		case payments.EventPaymentFailed:
			result = applyPaymentFailed(d, event.Payload.Payment.Entity)
		case payments.EventRefundCreated:
			result = applyRefundCreated(d, event.Payload.Refund.Entity)
		default:
			logger.Info().Str("event", event.Event).Msg("unhandled gateway event")
			result = outcomeSkipped
		}

		if result == outcomeFailed {
			// Signal the gateway to redeliver; the transition is idempotent.
			// The delivery stays unmarked so the retry is not short-circuited.
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
			return
		}
		if d.Guard != nil {
			if err := d.Guard.Mark(c.Request.Context(), key); err != nil {
				logger.Warn().Err(err).Str("event", event.Event).Msg("replay marker write failed")
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func applyPaymentCaptured(d Deps, payment payments.PaymentEntity) outcome {
	var order models.Order
	err := d.DB.First(&order, "gateway_order_id = ?", payment.OrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Capture can arrive before the client called verify-payment; the
		// primary flow will materialize the order, so this is a no-op.
		logger.Info().Str("gateway_order", payment.OrderID).Msg("captured webhook for unknown order")
		return outcomeSkipped
	}
	if err != nil {
		logger.Error().Err(err).Msg("captured webhook: lookup failed")
		return outcomeFailed
	}

	if order.PaymentStatus == models.PaymentStatusCompleted {
		return outcomeSkipped
	}

	updates := map[string]interface{}{
		"payment_status":     models.PaymentStatusCompleted,
		"gateway_payment_id": payment.ID,
	}
	if order.Status == models.OrderStatusPending {
		updates["status"] = models.OrderStatusConfirmed
	}
	if err := d.DB.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("captured webhook: update failed")
		return outcomeFailed
	}

	order.PaymentStatus = models.PaymentStatusCompleted
	if order.Status == models.OrderStatusPending {
		order.Status = models.OrderStatusConfirmed
	}
	logger.Info().Str("order", order.OrderNumber).Msg("payment capture reconciled")
	d.Events.OrderStatusChanged(context.Background(), "order.confirmed", &order)
	d.broadcast(&order)
	return outcomeApplied
}

func applyPaymentFailed(d Deps, payment payments.PaymentEntity) outcome {
	var order models.Order
	err := d.DB.Preload("Items").First(&order, "gateway_order_id = ?", payment.OrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Failure before verification: nothing durable exists, stock was
		// never decremented, the stage simply expires.
		return outcomeSkipped
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed webhook: lookup failed")
		return outcomeFailed
	}

	// A failure event can straggle in after fulfilment moved on; only orders
	// the state machine still allows to cancel are rolled back.
	if order.PaymentStatus == models.PaymentStatusFailed || !order.Status.CanTransition(models.OrderStatusCancelled) {
		logger.Info().Str("order", order.OrderNumber).Str("status", string(order.Status)).Msg("failed webhook ignored for non-cancellable order")
		return outcomeSkipped
	}

	now := time.Now()
	txErr := d.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", order.ID, []models.OrderStatus{
				models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusProcessing,
			}).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusCancelled,
				"payment_status": models.PaymentStatusFailed,
				"cancel_reason":  payment.ErrorDescription,
				"cancelled_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race with another delivery; stock already restored.
			return nil
		}

		// The confirmed order had decremented stock; give it back once.
		for _, item := range order.Items {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		logger.Error().Err(txErr).Str("order", order.OrderNumber).Msg("failed webhook: cancellation failed")
		return outcomeFailed
	}

	order.Status = models.OrderStatusCancelled
	order.PaymentStatus = models.PaymentStatusFailed
	order.CancelledAt = &now
	logger.Info().Str("order", order.OrderNumber).Msg("payment failure reconciled, stock restored")
	d.Events.OrderStatusChanged(context.Background(), "order.cancelled", &order)
	d.broadcast(&order)
	return outcomeApplied
}

func applyRefundCreated(d Deps, refund payments.RefundEntity) outcome {
	var order models.Order
	err := d.DB.First(&order, "gateway_payment_id = ?", refund.PaymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warn().Str("gateway_payment", refund.PaymentID).Msg("refund webhook for unknown payment")
		return outcomeSkipped
	}
	if err != nil {
		logger.Error().Err(err).Msg("refund webhook: lookup failed")
		return outcomeFailed
	}

	if order.RefundStatus == models.RefundStatusCompleted {
		return outcomeSkipped
	}

	updates := map[string]interface{}{"refund_status": models.RefundStatusCompleted}
	fullRefund := refund.Amount >= pricing.MinorUnits(order.Total)
	if fullRefund {
		updates["status"] = models.OrderStatusRefunded
		updates["payment_status"] = models.PaymentStatusRefunded
	}
	if err := d.DB.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("refund webhook: update failed")
		return outcomeFailed
	}

	order.RefundStatus = models.RefundStatusCompleted
	if fullRefund {
		order.Status = models.OrderStatusRefunded
		order.PaymentStatus = models.PaymentStatusRefunded
	}
	logger.Info().Str("order", order.OrderNumber).Bool("full", fullRefund).Msg("refund reconciled")
	d.Events.OrderStatusChanged(context.Background(), "order.refunded", &order)
	d.broadcast(&order)
	return outcomeApplied
}
