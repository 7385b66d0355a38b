package returnControllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/events"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/payments"
	"github.com/mayurimulay789/e-commerce21-sub001/pricing"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "returns").Logger()

// ReturnWindow is how long after delivery a return may be requested.
const ReturnWindow = 7 * 24 * time.Hour

var (
	ErrReturnWindowExpired = errors.New("returns: return window expired")
	ErrOrderNotReturnable  = errors.New("returns: order is not returnable")
	ErrInvalidReturnItem   = errors.New("returns: item not in order or quantity exceeds ordered")
	ErrInvalidTransition   = errors.New("returns: invalid status transition")
)

// -------- Request Structs --------

type ReturnItemInput struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Reason    string `json:"reason"`
}

type CreateReturnRequest struct {
	OrderID     uint              `json:"order_id" binding:"required"`
	Items       []ReturnItemInput `json:"items" binding:"required,min=1,dive"`
	Reason      string            `json:"reason" binding:"required"`
	Description string            `json:"description"`
	Type        models.ReturnType `json:"type"`
	Images      []string          `json:"images"`
}

type UpdateReturnStatusRequest struct {
	Status     models.ReturnStatus `json:"status" binding:"required"`
	AdminNotes string              `json:"admin_notes"`
}

func generateReturnNumber(now time.Time) string {
	return "RET-" + now.Format("20060102150405") + "-" + strings.ToUpper(uuid.NewString()[:8])
}

// -------- Core Logic --------

// CreateReturn validates and records a return request for a delivered order.
func CreateReturn(db *gorm.DB, userID string, req CreateReturnRequest, now time.Time) (*models.Return, error) {
	var order models.Order
	if err := db.Preload("Items").Where("id = ? AND user_id = ?", req.OrderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotReturnable
		}
		return nil, err
	}

	if order.Status != models.OrderStatusDelivered || order.DeliveredAt == nil {
		return nil, ErrOrderNotReturnable
	}
	if now.Sub(*order.DeliveredAt) > ReturnWindow {
		return nil, ErrReturnWindowExpired
	}

	ordered := make(map[uint]models.OrderItem, len(order.Items))
	for _, item := range order.Items {
		ordered[item.ProductID] = item
	}

	var refundAmount float64
	items := make([]models.ReturnItem, 0, len(req.Items))
	for _, input := range req.Items {
		orderItem, ok := ordered[input.ProductID]
		if !ok || input.Quantity > orderItem.Quantity {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidReturnItem, input.ProductID)
		}
		refundAmount += orderItem.UnitPrice * float64(input.Quantity)
		items = append(items, models.ReturnItem{
			ProductID: orderItem.ProductID,
			Name:      orderItem.Name,
			UnitPrice: orderItem.UnitPrice,
			Quantity:  input.Quantity,
			Reason:    input.Reason,
		})
	}

	returnType := req.Type
	if returnType == "" {
		returnType = models.ReturnTypeRefund
	}

	images := make([]models.ReturnImage, 0, len(req.Images))
	for _, url := range req.Images {
		images = append(images, models.ReturnImage{URL: url})
	}

	ret := &models.Return{
		ReturnNumber: generateReturnNumber(now),
		OrderID:      order.ID,
		UserID:       userID,
		Items:        items,
		Images:       images,
		Reason:       req.Reason,
		Description:  req.Description,
		Type:         returnType,
		Status:       models.ReturnStatusRequested,
		RefundAmount: refundAmount,
	}
	if err := db.Create(ret).Error; err != nil {
		return nil, err
	}

	logger.Info().
		Str("return", ret.ReturnNumber).
		Str("order", order.OrderNumber).
		Float64("refund_amount", refundAmount).
		Msg("return requested")
	return ret, nil
}

// UpdateReturnStatus applies an admin transition. Approving a refund-type
// return issues the gateway refund; refund failure is fatal to the request
// (the admin retries), while a succeeded refund marks the return and, when
// it covers the full order total, flips the order to refunded.
func UpdateReturnStatus(ctx context.Context, db *gorm.DB, gw payments.Gateway, pub *events.Publisher, returnID uint, req UpdateReturnStatusRequest, processedBy string) (*models.Return, error) {
	var ret models.Return
	if err := db.Preload("Order").First(&ret, returnID).Error; err != nil {
		return nil, err
	}

	if !ret.Status.CanTransition(req.Status) {
		return nil, ErrInvalidTransition
	}

	if req.Status == models.ReturnStatusApproved && ret.Type == models.ReturnTypeRefund {
		if ret.RefundID == "" {
			refund, err := gw.Refund(ctx, ret.Order.GatewayPaymentID, pricing.MinorUnits(ret.RefundAmount), map[string]string{
				"return_number": ret.ReturnNumber,
				"order_number":  ret.Order.OrderNumber,
			})
			if err != nil {
				return nil, err
			}
			ret.RefundID = refund.ID
			ret.RefundStatus = models.RefundStatusCompleted
			// Persist the gateway reference before anything else can fail;
			// a re-run of this approval must never issue a second refund.
			if err := db.Model(&models.Return{}).Where("id = ?", ret.ID).Updates(map[string]interface{}{
				"refund_id":     ret.RefundID,
				"refund_status": ret.RefundStatus,
			}).Error; err != nil {
				return nil, err
			}
			logger.Info().
				Str("return", ret.ReturnNumber).
				Str("refund", refund.ID).
				Float64("amount", ret.RefundAmount).
				Msg("gateway refund issued")
		} else {
			logger.Info().
				Str("return", ret.ReturnNumber).
				Str("refund", ret.RefundID).
				Msg("refund already issued, completing approval")
		}

		if ret.RefundAmount >= ret.Order.Total {
			orderUpdates := map[string]interface{}{
				"status":         models.OrderStatusRefunded,
				"payment_status": models.PaymentStatusRefunded,
				"refund_status":  models.RefundStatusCompleted,
			}
			if err := db.Model(&models.Order{}).Where("id = ?", ret.OrderID).Updates(orderUpdates).Error; err != nil {
				return nil, err
			}
			ret.Order.Status = models.OrderStatusRefunded
			ret.Order.PaymentStatus = models.PaymentStatusRefunded
			pub.OrderStatusChanged(ctx, "order.refunded", &ret.Order)
		}
	}

	now := time.Now()
	ret.Status = req.Status
	ret.AdminNotes = req.AdminNotes
	ret.ProcessedBy = processedBy
	ret.ProcessedAt = &now
	if err := db.Model(&models.Return{}).Where("id = ?", ret.ID).Updates(map[string]interface{}{
		"status":        ret.Status,
		"admin_notes":   ret.AdminNotes,
		"processed_by":  ret.ProcessedBy,
		"processed_at":  now,
		"refund_id":     ret.RefundID,
		"refund_status": ret.RefundStatus,
	}).Error; err != nil {
		return nil, err
	}

	return &ret, nil
}

// -------- Handlers --------

// CreateReturnHandler records a return request for the acting user.
func CreateReturnHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var req CreateReturnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		ret, err := CreateReturn(db, userID, req, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, ErrReturnWindowExpired):
				c.JSON(http.StatusConflict, gin.H{"error": "return window has expired"})
			case errors.Is(err, ErrOrderNotReturnable):
				c.JSON(http.StatusConflict, gin.H{"error": "order is not eligible for return"})
			case errors.Is(err, ErrInvalidReturnItem):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create return request"})
			}
			return
		}
		c.JSON(http.StatusCreated, ret)
	}
}

// GetUserReturnsHandler lists the acting user's return requests.
func GetUserReturnsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		var returns []models.Return
		if err := db.
			Where("user_id = ?", userID).
			Preload("Items").
			Order("created_at DESC").
			Find(&returns).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch returns"})
			return
		}
		c.JSON(http.StatusOK, returns)
	}
}

// UpdateReturnStatusHandler applies an admin decision to a return request.
func UpdateReturnStatusHandler(db *gorm.DB, gw payments.Gateway, pub *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri struct {
			ReturnID uint `uri:"returnID" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "returnID is required"})
			return
		}
		var req UpdateReturnStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		ret, err := UpdateReturnStatus(c.Request.Context(), db, gw, pub, uri.ReturnID, req, middleware.UserID(c))
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "return not found"})
			case errors.Is(err, ErrInvalidTransition):
				c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
			case errors.Is(err, payments.ErrGatewayUnavailable):
				c.JSON(http.StatusBadGateway, gin.H{"error": "refund could not be issued"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update return"})
			}
			return
		}
		c.JSON(http.StatusOK, ret)
	}
}
