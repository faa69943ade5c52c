package wire

import (
	"restaurant-ops/internal/adaptor"
	"restaurant-ops/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	couponHandler *adaptor.CouponHandler,
	limiter *middleware.RateLimiter,
	log *zap.Logger,
) {
	// ==================== GATEWAY CALLBACK ====================
	// POST /api/payments/webhook - always answered with 200
	r.With(middleware.RateLimit(limiter, log)).Post("/api/payments/webhook", paymentHandler.Webhook)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/coupons/apply - discount an order or a whole reservation
		r.Post("/api/coupons/apply", couponHandler.ApplyCoupon)

		// POST /api/payments/{code}/intent - hosted checkout link
		r.Post("/api/payments/{code}/intent", paymentHandler.CreateIntent)

		// GET /api/payments/{code}/status - PAID / FAILED / PENDING
		r.Get("/api/payments/{code}/status", paymentHandler.GetStatus)

		// POST /api/payments/{code}/cash
		r.With(middleware.Staff(log)).Post("/api/payments/{code}/cash", paymentHandler.PayCash)
	})
}
