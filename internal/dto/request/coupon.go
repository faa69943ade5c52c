package request

// ApplyCouponRequest targets either one order or a whole reservation.
type ApplyCouponRequest struct {
	CouponCode      string `json:"coupon_code" validate:"required,max=50"`
	OrderID         string `json:"order_id" validate:"required_without=ReservationCode,omitempty,uuid4"`
	ReservationCode string `json:"reservation_code" validate:"required_without=OrderID,omitempty,len=8,alphanum"`
}
