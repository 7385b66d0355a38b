package checkoutControllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/coupons"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/payments"
	"github.com/mayurimulay789/e-commerce21-sub001/pricing"
	"github.com/mayurimulay789/e-commerce21-sub001/staging"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "checkout").Logger()

var (
	ErrProductNotFound   = errors.New("checkout: product not found")
	ErrProductInactive   = errors.New("checkout: product is not available")
	ErrInsufficientStock = errors.New("checkout: insufficient stock")
	ErrInvalidSize       = errors.New("checkout: invalid size for product")
	ErrCouponIneligible  = errors.New("checkout: coupon not applicable")
)

// -------- Request Structs --------

type CheckoutItemInput struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type InitiateCheckoutRequest struct {
	Items           []CheckoutItemInput `json:"items" binding:"required,min=1,dive"`
	ShippingAddress models.Address      `json:"shipping_address" binding:"required"`
	CouponCode      string              `json:"coupon_code"`
}

// -------- Core Logic --------

// InitiateCheckout validates the cart against live products, previews the
// coupon, prices the order, registers it with the payment gateway and stages
// the snapshot. Nothing durable is mutated: stock and coupon counters move
// only after payment verification.
func InitiateCheckout(ctx context.Context, db *gorm.DB, stage staging.Store, gw payments.Gateway, userID string, req InitiateCheckoutRequest) (*payments.GatewayOrder, error) {
	items := make([]models.OrderItem, 0, len(req.Items))
	lineItems := make([]pricing.LineItem, 0, len(req.Items))

	for _, input := range req.Items {
		var product models.Product
		if err := db.Preload("Sizes").First(&product, "id = ?", input.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, input.ProductID)
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductInactive, product.Name)
		}
		if product.Stock < input.Quantity {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, product.Name)
		}
		if input.Size != "" && !product.HasSize(input.Size) {
			return nil, fmt.Errorf("%w: %s size %q", ErrInvalidSize, product.Name, input.Size)
		}

		// Snapshot at this instant; the order never re-joins live product data.
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			UnitPrice: product.Price,
			Quantity:  input.Quantity,
			Size:      input.Size,
			Color:     input.Color,
		})
		lineItems = append(lineItems, pricing.LineItem{UnitPrice: product.Price, Quantity: input.Quantity})
	}

	var subtotal float64
	for _, li := range lineItems {
		subtotal += li.UnitPrice * float64(li.Quantity)
	}

	// Coupon preview only; the commit happens at payment verification.
	var discount float64
	var couponCode string
	if req.CouponCode != "" {
		coupon, err := coupons.Lookup(db, req.CouponCode)
		if err != nil {
			return nil, err
		}
		elig, err := coupons.CheckEligibility(db, coupon, userID, subtotal, time.Now())
		if err != nil {
			return nil, err
		}
		if !elig.Valid {
			return nil, fmt.Errorf("%w: %s", ErrCouponIneligible, elig.Reason)
		}
		discount = coupons.PreviewDiscount(coupon, subtotal)
		couponCode = coupon.Code
	}

	breakdown, err := pricing.Compute(lineItems, discount)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("rcpt-%s-%d", userID, time.Now().Unix())
	gatewayOrder, err := gw.CreateOrder(ctx, pricing.MinorUnits(breakdown.Total), "INR", receipt, map[string]string{
		"user_id":     userID,
		"coupon_code": couponCode,
	})
	if err != nil {
		return nil, err
	}

	pending := &staging.PendingOrder{
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Subtotal:        breakdown.Subtotal,
		ShippingCharges: breakdown.ShippingCharges,
		Tax:             breakdown.Tax,
		Discount:        breakdown.Discount,
		Total:           breakdown.Total,
		CouponCode:      couponCode,
		GatewayOrderID:  gatewayOrder.ID,
		CreatedAt:       time.Now(),
	}
	if err := stage.Put(ctx, pending); err != nil {
		return nil, err
	}

	logger.Info().
		Str("user", userID).
		Str("gateway_order", gatewayOrder.ID).
		Float64("total", breakdown.Total).
		Str("coupon", couponCode).
		Msg("checkout staged")

	return gatewayOrder, nil
}

// -------- Handlers --------

// CreateGatewayOrderHandler starts a checkout for the authenticated user.
func CreateGatewayOrderHandler(db *gorm.DB, stage staging.Store, gw payments.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req InitiateCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		gatewayOrder, err := InitiateCheckout(c.Request.Context(), db, stage, gw, userID, req)
		if err != nil {
			c.JSON(checkoutErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"gateway_order_id": gatewayOrder.ID,
			"amount":           gatewayOrder.Amount,
			"currency":         gatewayOrder.Currency,
		})
	}
}

func checkoutErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, coupons.ErrCouponNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrCouponIneligible):
		return http.StatusConflict
	case errors.Is(err, ErrProductInactive), errors.Is(err, ErrInvalidSize), errors.Is(err, pricing.ErrInvalidLineItem):
		return http.StatusBadRequest
	case errors.Is(err, payments.ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
