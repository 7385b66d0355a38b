package orderControllers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/events"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/shipping"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "orders").Logger()

var (
	ErrOrderNotFound     = errors.New("orders: order not found")
	ErrInvalidOrderState = errors.New("orders: invalid state for this operation")
)

// -------- Core Logic --------

// CancelOrder cancels a confirmed or processing order: carrier cancellation
// is best-effort, the status flip and stock restore are not.
func CancelOrder(ctx context.Context, db *gorm.DB, carrier shipping.Carrier, orderID uint, userID, reason string) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("Items").Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status != models.OrderStatusConfirmed && order.Status != models.OrderStatusProcessing {
		return nil, ErrInvalidOrderState
	}

	if carrier != nil && order.TrackingNumber != "" {
		if err := carrier.CancelShipment(ctx, order.TrackingNumber); err != nil {
			logger.Warn().Err(err).Str("order", order.OrderNumber).Msg("carrier cancellation failed, continuing")
		}
	}

	now := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", order.ID, []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusProcessing}).
			Updates(map[string]interface{}{
				"status":        models.OrderStatusCancelled,
				"cancel_reason": reason,
				"cancelled_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidOrderState
		}

		// Stock restore happens exactly once, keyed to the status flip above.
		for _, item := range order.Items {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusCancelled
	order.CancelReason = reason
	order.CancelledAt = &now
	logger.Info().Str("order", order.OrderNumber).Str("user", userID).Msg("order cancelled")
	return &order, nil
}

// -------- Handlers --------

// GetUserOrdersHandler lists the authenticated user's orders, newest first.
func GetUserOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		var orders []models.Order
		if err := db.
			Where("user_id = ?", userID).
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GetOrderByIDHandler fetches one order by numeric id or order number,
// scoped to the acting user.
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("orderID")
		userID := middleware.UserID(c)

		var order models.Order
		if err := db.
			Preload("Items").
			Where("(id = ? OR order_number = ?) AND user_id = ?", id, id, userID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// TrackOrderHandler returns stored tracking info, refreshed from the carrier
// when it answers in time. A carrier outage degrades to the stored state.
func TrackOrderHandler(db *gorm.DB, carrier shipping.Carrier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("orderID")
		userID := middleware.UserID(c)

		var order models.Order
		if err := db.
			Where("(id = ? OR order_number = ?) AND user_id = ?", id, id, userID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
			return
		}

		response := gin.H{
			"order_number":       order.OrderNumber,
			"status":             order.Status,
			"tracking_number":    order.TrackingNumber,
			"tracking_url":       order.TrackingURL,
			"estimated_delivery": order.EstimatedDelivery,
			"delivered_at":       order.DeliveredAt,
		}
		if carrier != nil && order.TrackingNumber != "" {
			if carrierStatus, err := carrier.TrackShipment(c.Request.Context(), order.TrackingNumber); err == nil {
				response["carrier_status"] = carrierStatus
			}
		}
		c.JSON(http.StatusOK, response)
	}
}

// CancelOrderHandler cancels the acting user's order.
func CancelOrderHandler(db *gorm.DB, carrier shipping.Carrier, pub *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var uri struct {
			OrderID uint `uri:"orderID" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}
		var req struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&req)

		order, err := CancelOrder(c.Request.Context(), db, carrier, uri.OrderID, userID, req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			case errors.Is(err, ErrInvalidOrderState):
				c.JSON(http.StatusConflict, gin.H{"error": "order can no longer be cancelled"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel order"})
			}
			return
		}

		pub.OrderStatusChanged(c.Request.Context(), "order.cancelled", order)
		Broadcast(order)
		c.JSON(http.StatusOK, order)
	}
}

// GetAllOrdersHandler lists all orders for the admin dashboard.
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// UpdateOrderStatusHandler lets an admin push an order forward through the
// lifecycle. Backward moves and skips are rejected.
func UpdateOrderStatusHandler(db *gorm.DB, pub *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri struct {
			OrderID uint `uri:"orderID" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderID is required"})
			return
		}
		var req struct {
			Status models.OrderStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}

		var order models.Order
		if err := db.First(&order, uri.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
			return
		}

		if !order.Status.CanTransition(req.Status) {
			c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
			return
		}

		updates := map[string]interface{}{"status": req.Status}
		if req.Status == models.OrderStatusDelivered {
			now := time.Now()
			updates["delivered_at"] = now
			order.DeliveredAt = &now
		}
		if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order status"})
			return
		}

		order.Status = req.Status
		pub.OrderStatusChanged(c.Request.Context(), "order.status_changed", &order)
		Broadcast(&order)
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully"})
	}
}
