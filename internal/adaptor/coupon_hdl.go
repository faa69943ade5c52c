package adaptor

import (
	"net/http"

	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/usecase"
	"restaurant-ops/pkg/utils"

	"go.uber.org/zap"
)

type CouponHandler struct {
	service usecase.CouponService
	log     *zap.Logger
}

func NewCouponHandler(service usecase.CouponService, log *zap.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		log:     log.With(zap.String("handler", "coupon")),
	}
}

// ApplyCoupon handles POST /api/coupons/apply
func (h *CouponHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	var req request.ApplyCouponRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.ApplyCoupon(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "apply coupon")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
