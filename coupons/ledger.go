package coupons

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

var (
	ErrCouponNotFound  = errors.New("coupons: coupon not found")
	ErrCouponExhausted = errors.New("coupons: global usage limit reached")
	ErrCouponUserLimit = errors.New("coupons: per-user usage limit reached")
)

// Eligibility is the fail-closed result of a coupon check.
type Eligibility struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func invalid(reason string) Eligibility { return Eligibility{Valid: false, Reason: reason} }

// Lookup fetches a coupon by its (case-insensitive) code.
func Lookup(db *gorm.DB, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := db.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

// CheckEligibility decides whether userID may redeem the coupon against an
// order of the given value. It fails closed: any disqualifying condition
// yields an invalid result, never an error, except for storage failures.
func CheckEligibility(db *gorm.DB, coupon *models.Coupon, userID string, orderValue float64, now time.Time) (Eligibility, error) {
	if !coupon.IsActive {
		return invalid("coupon is not active"), nil
	}
	if now.Before(coupon.ValidFrom) {
		return invalid("coupon is not yet valid"), nil
	}
	if now.After(coupon.ValidUntil) {
		return invalid("coupon has expired"), nil
	}
	if coupon.MaxUses > 0 && coupon.UsedCount >= coupon.MaxUses {
		return invalid("coupon usage limit reached"), nil
	}
	if orderValue < coupon.MinOrderValue {
		return invalid("order value below coupon minimum"), nil
	}

	var redemption models.CouponRedemption
	err := db.Where("coupon_id = ? AND user_id = ?", coupon.ID, userID).First(&redemption).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first use for this user
	case err != nil:
		return invalid("coupon check failed"), err
	case redemption.UsedCount >= coupon.MaxUsesPerUser:
		return invalid("coupon already used"), nil
	}

	return Eligibility{Valid: true}, nil
}

// PreviewDiscount computes the discount the coupon would grant on orderValue
// without committing anything. Never negative, never exceeds orderValue.
func PreviewDiscount(coupon *models.Coupon, orderValue float64) float64 {
	var discount float64
	switch coupon.DiscountType {
	case models.DiscountFlat:
		discount = coupon.DiscountValue
	case models.DiscountPercentage:
		discount = orderValue * coupon.DiscountValue / 100
		if coupon.MaxDiscountAmount > 0 && discount > coupon.MaxDiscountAmount {
			discount = coupon.MaxDiscountAmount
		}
	}
	if discount > orderValue {
		discount = orderValue
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// CommitRedemption increments the coupon's global and per-user usage counters
// with conditional updates, so concurrent commits can never push either
// counter past its limit. Call it exactly once per verified payment, inside
// the confirming transaction (under a savepoint so a failed commit does not
// abort the paid order).
func CommitRedemption(tx *gorm.DB, coupon *models.Coupon, userID string, now time.Time) error {
	res := tx.Model(&models.Coupon{}).
		Where("id = ?", coupon.ID).
		Where("max_uses = 0 OR used_count < max_uses").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCouponExhausted
	}

	upd := tx.Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ? AND used_count < ?", coupon.ID, userID, coupon.MaxUsesPerUser).
		UpdateColumns(map[string]interface{}{
			"used_count": gorm.Expr("used_count + 1"),
			"last_used":  now,
		})
	if upd.Error != nil {
		return upd.Error
	}
	if upd.RowsAffected > 0 {
		return nil
	}

	// Either no per-user record yet, or the user is at the limit.
	var existing int64
	if err := tx.Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", coupon.ID, userID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 || coupon.MaxUsesPerUser < 1 {
		return ErrCouponUserLimit
	}

	ins := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "coupon_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.CouponRedemption{
		CouponID:  coupon.ID,
		UserID:    userID,
		UsedCount: 1,
		LastUsed:  now,
	})
	if ins.Error != nil {
		return ins.Error
	}
	if ins.RowsAffected == 0 {
		// Lost a race with a concurrent first use; that one counted.
		return ErrCouponUserLimit
	}
	return nil
}
