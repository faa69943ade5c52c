package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type CouponScope string

const (
	CouponScopeAll         CouponScope = "all"
	CouponScopeOrder       CouponScope = "order"
	CouponScopeReservation CouponScope = "reservation"
)

var (
	ErrCouponInactive     = errors.New("coupon is not active")
	ErrCouponNotStarted   = errors.New("coupon is not valid yet")
	ErrCouponExpired      = errors.New("coupon has expired")
	ErrCouponExhausted    = errors.New("coupon has no remaining quantity")
	ErrCouponWrongScope   = errors.New("coupon does not apply to this target")
	ErrCouponInvalidValue = errors.New("coupon discount value is out of range")
)

var hundred = decimal.NewFromInt(100)

type Coupon struct {
	Base
	Code           string          `db:"code"`
	DiscountType   DiscountType    `db:"discount_type"`
	DiscountValue  decimal.Decimal `db:"discount_value"`
	Quantity       int             `db:"quantity"`
	ValidFrom      time.Time       `db:"valid_from"`
	ValidTo        time.Time       `db:"valid_to"`
	IsActive       bool            `db:"is_active"`
	Scope          CouponScope     `db:"scope"`
	PointsRequired int             `db:"points_required"`
}

// CouponOwnership records that a customer exchanged points for a coupon.
type CouponOwnership struct {
	CouponID   uuid.UUID `db:"coupon_id"`
	CustomerID uuid.UUID `db:"customer_id"`
}

// Validate checks the stored invariants of a coupon definition.
func (c *Coupon) Validate() error {
	if c.Quantity < 0 || c.DiscountValue.IsNegative() {
		return ErrCouponInvalidValue
	}
	if c.DiscountType == DiscountPercentage && c.DiscountValue.GreaterThan(hundred) {
		return ErrCouponInvalidValue
	}
	if c.DiscountType != DiscountPercentage && c.DiscountType != DiscountFixed {
		return ErrCouponInvalidValue
	}
	return nil
}

// RedeemableAt reports the first reason the coupon cannot be used at now.
func (c *Coupon) RedeemableAt(now time.Time) error {
	switch {
	case !c.IsActive:
		return ErrCouponInactive
	case now.Before(c.ValidFrom):
		return ErrCouponNotStarted
	case now.After(c.ValidTo):
		return ErrCouponExpired
	case c.Quantity <= 0:
		return ErrCouponExhausted
	}
	return nil
}

func (c *Coupon) AppliesTo(scope CouponScope) bool {
	return c.Scope == "" || c.Scope == CouponScopeAll || c.Scope == scope
}

// RequiresOwnership is true for coupons bought with redemption points.
func (c *Coupon) RequiresOwnership() bool {
	return c.PointsRequired > 0
}

// Discount computes the discount on total, capped so the result is never negative.
func (c *Coupon) Discount(total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = total.Mul(c.DiscountValue).Div(hundred).Round(0)
	default:
		d = c.DiscountValue
	}
	if d.GreaterThan(total) {
		return total
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
