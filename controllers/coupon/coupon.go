package couponControllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/coupons"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

// -------- Request Structs --------

type ValidateCouponRequest struct {
	Code       string  `json:"code" binding:"required"`
	OrderValue float64 `json:"order_value" binding:"required,gt=0"`
}

type CouponInput struct {
	Code              string              `json:"code" binding:"required"`
	DiscountType      models.DiscountType `json:"discount_type" binding:"required,oneof=flat percentage"`
	DiscountValue     float64             `json:"discount_value" binding:"required,gt=0"`
	MinOrderValue     float64             `json:"min_order_value"`
	MaxDiscountAmount float64             `json:"max_discount_amount"`
	MaxUses           int                 `json:"max_uses"`
	MaxUsesPerUser    int                 `json:"max_uses_per_user"`
	IsActive          *bool               `json:"is_active"`
	ValidFrom         time.Time           `json:"valid_from"`
	ValidUntil        time.Time           `json:"valid_until" binding:"required"`
}

// -------- Handlers --------

// ValidateCouponHandler previews a coupon against an order value for the
// acting user. Nothing is committed.
func ValidateCouponHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var req ValidateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		coupon, err := coupons.Lookup(db, req.Code)
		if err != nil {
			if errors.Is(err, coupons.ErrCouponNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate coupon"})
			return
		}

		elig, err := coupons.CheckEligibility(db, coupon, userID, req.OrderValue, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate coupon"})
			return
		}
		if !elig.Valid {
			c.JSON(http.StatusOK, gin.H{"valid": false, "reason": elig.Reason})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"valid":    true,
			"code":     coupon.Code,
			"discount": coupons.PreviewDiscount(coupon, req.OrderValue),
		})
	}
}

// CreateCouponHandler defines a new coupon (admin).
func CreateCouponHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CouponInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		active := true
		if input.IsActive != nil {
			active = *input.IsActive
		}
		perUser := input.MaxUsesPerUser
		if perUser == 0 {
			perUser = 1
		}
		validFrom := input.ValidFrom
		if validFrom.IsZero() {
			validFrom = time.Now()
		}

		coupon := models.Coupon{
			Code:              strings.ToUpper(strings.TrimSpace(input.Code)),
			DiscountType:      input.DiscountType,
			DiscountValue:     input.DiscountValue,
			MinOrderValue:     input.MinOrderValue,
			MaxDiscountAmount: input.MaxDiscountAmount,
			MaxUses:           input.MaxUses,
			MaxUsesPerUser:    perUser,
			IsActive:          active,
			ValidFrom:         validFrom,
			ValidUntil:        input.ValidUntil,
		}
		if err := db.Create(&coupon).Error; err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "coupon code already exists"})
			return
		}
		c.JSON(http.StatusCreated, coupon)
	}
}

// UpdateCouponHandler mutates definition fields of an existing coupon
// (admin). Usage counters are never writable here.
func UpdateCouponHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri struct {
			CouponID uint `uri:"couponID" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "couponID is required"})
			return
		}

		var coupon models.Coupon
		if err := db.First(&coupon, uri.CouponID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
			return
		}

		var input struct {
			DiscountValue     *float64   `json:"discount_value"`
			MinOrderValue     *float64   `json:"min_order_value"`
			MaxDiscountAmount *float64   `json:"max_discount_amount"`
			MaxUses           *int       `json:"max_uses"`
			MaxUsesPerUser    *int       `json:"max_uses_per_user"`
			IsActive          *bool      `json:"is_active"`
			ValidUntil        *time.Time `json:"valid_until"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if input.DiscountValue != nil {
			updates["discount_value"] = *input.DiscountValue
		}
		if input.MinOrderValue != nil {
			updates["min_order_value"] = *input.MinOrderValue
		}
		if input.MaxDiscountAmount != nil {
			updates["max_discount_amount"] = *input.MaxDiscountAmount
		}
		if input.MaxUses != nil {
			updates["max_uses"] = *input.MaxUses
		}
		if input.MaxUsesPerUser != nil {
			updates["max_uses_per_user"] = *input.MaxUsesPerUser
		}
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
		}
		if input.ValidUntil != nil {
			updates["valid_until"] = *input.ValidUntil
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}

		if err := db.Model(&coupon).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update coupon"})
			return
		}
		c.JSON(http.StatusOK, coupon)
	}
}

// ListCouponsHandler lists all coupons with usage counters (admin).
func ListCouponsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var couponList []models.Coupon
		if err := db.Order("created_at DESC").Find(&couponList).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch coupons"})
			return
		}
		c.JSON(http.StatusOK, couponList)
	}
}

// DeactivateCouponHandler retires a coupon without deleting its redemption
// history (admin).
func DeactivateCouponHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri struct {
			CouponID uint `uri:"couponID" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "couponID is required"})
			return
		}

		res := db.Model(&models.Coupon{}).Where("id = ?", uri.CouponID).Update("is_active", false)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate coupon"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Coupon deactivated successfully"})
	}
}
