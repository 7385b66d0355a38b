package models

import "time"

type DiscountType string

const (
	DiscountFlat       DiscountType = "flat"
	DiscountPercentage DiscountType = "percentage"
)

type Coupon struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Code          string       `gorm:"uniqueIndex;not null" json:"code"` // stored uppercase
	DiscountType  DiscountType `gorm:"type:VARCHAR(16);not null" json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	MinOrderValue float64      `json:"min_order_value"`
	// MaxDiscountAmount caps percentage discounts; 0 means no cap.
	MaxDiscountAmount float64 `json:"max_discount_amount"`
	// MaxUses caps global redemptions; 0 means unlimited.
	MaxUses        int `json:"max_uses"`
	MaxUsesPerUser int `gorm:"default:1" json:"max_uses_per_user"`
	UsedCount      int `json:"used_count"`

	IsActive   bool      `json:"is_active"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`

	Redemptions []CouponRedemption `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CouponRedemption is the per-user usage counter for one coupon.
type CouponRedemption struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CouponID  uint      `gorm:"uniqueIndex:idx_coupon_user;not null" json:"-"`
	UserID    string    `gorm:"uniqueIndex:idx_coupon_user;not null" json:"user_id"`
	UsedCount int       `json:"used_count"`
	LastUsed  time.Time `json:"last_used"`
}
