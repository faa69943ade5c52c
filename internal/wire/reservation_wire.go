package wire

import (
	"restaurant-ops/internal/adaptor"
	"restaurant-ops/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReservation(
	r chi.Router,
	reservationHandler *adaptor.ReservationHandler,
	limiter *middleware.RateLimiter,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// POST /api/availability - read-only window check
	r.Post("/api/availability", reservationHandler.CheckAvailability)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// POST /api/reservations - book one or more tables
		r.With(middleware.RateLimit(limiter, log)).Post("/api/reservations", reservationHandler.CreateReservation)

		// GET /api/reservations/transactions/{txCode} - lookup by payment transaction code
		r.Get("/api/reservations/transactions/{txCode}", reservationHandler.GetByTransaction)

		// GET /api/reservations/{code}
		r.Get("/api/reservations/{code}", reservationHandler.GetReservation)

		// PUT /api/reservations/{code} - move window, tables or party size
		r.Put("/api/reservations/{code}", reservationHandler.UpdateReservation)

		// PUT /api/reservations/{code}/status - confirm/reject/cancel/serve/complete/no_show
		r.Put("/api/reservations/{code}/status", reservationHandler.UpdateStatus)
	})
}
