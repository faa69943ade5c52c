package response

import (
	"restaurant-ops/internal/data/entity"

	"github.com/shopspring/decimal"
)

type ApplyCouponResponse struct {
	CouponCode     string          `json:"coupon_code"`
	TargetType     string          `json:"target_type"`
	TargetID       string          `json:"target_id"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

type PaymentIntentResponse struct {
	ReservationCode string          `json:"reservation_code"`
	TransactionCode int64           `json:"transaction_code"`
	Amount          decimal.Decimal `json:"amount"`
	CheckoutURL     string          `json:"checkout_url"`
	QRCode          string          `json:"qr_code"`
}

type PaymentStatusResponse struct {
	ReservationCode string               `json:"reservation_code"`
	Status          entity.PollStatus    `json:"status"`
	PaymentStatus   entity.PaymentStatus `json:"payment_status"`
	PaymentMethod   entity.PaymentMethod `json:"payment_method,omitempty"`
	TransactionCode *int64               `json:"transaction_code,omitempty"`
}
