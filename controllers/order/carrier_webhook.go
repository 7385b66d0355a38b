package orderControllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/events"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/shipping"
)

// CarrierWebhookHandler ingests tracking updates from the shipping
// aggregator. The feed is at-least-once and can arrive out of order, so
// updates are keyed by tracking number and gated on the state machine; an
// unknown tracking number is a logged no-op, never an error.
func CarrierWebhookHandler(db *gorm.DB, pub *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload shipping.WebhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil || payload.AWB == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed carrier payload"})
			return
		}

		var order models.Order
		err := db.First(&order, "tracking_number = ?", payload.AWB).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Str("awb", payload.AWB).Str("carrier_status", payload.CurrentStatus).
				Msg("carrier update for unknown tracking number")
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}

		next := shipping.MapCarrierStatus(payload.CurrentStatus)
		if !order.Status.CanTransition(next) {
			// Duplicate or out-of-order delivery; current state stands.
			logger.Info().
				Str("order", order.OrderNumber).
				Str("from", string(order.Status)).
				Str("to", string(next)).
				Msg("carrier update skipped")
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		updates := map[string]interface{}{"status": next}
		if next == models.OrderStatusDelivered {
			deliveredAt := time.Now()
			if parsed, err := time.Parse("2006-01-02 15:04:05", payload.DeliveredDate); err == nil {
				deliveredAt = parsed
			}
			updates["delivered_at"] = deliveredAt
			order.DeliveredAt = &deliveredAt
		}
		if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}

		order.Status = next
		logger.Info().Str("order", order.OrderNumber).Str("status", string(next)).Msg("carrier update applied")
		pub.OrderStatusChanged(c.Request.Context(), "order.status_changed", &order)
		Broadcast(&order)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
