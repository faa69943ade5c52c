package wire

import (
	"restaurant-ops/internal/adaptor"
	"restaurant-ops/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireOrder(r chi.Router, orderHandler *adaptor.OrderHandler, log *zap.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// GET /api/reservations/{code}/orders
		r.Get("/api/reservations/{code}/orders", orderHandler.ListOrders)

		// POST /api/reservations/{code}/orders
		r.Post("/api/reservations/{code}/orders", orderHandler.CreateOrder)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(middleware.Identity(log))

		// PUT /api/orders/{id} - replace items while pending or confirmed
		r.Put("/{id}", orderHandler.UpdateItems)

		// PUT /api/orders/{id}/status
		r.Put("/{id}/status", orderHandler.UpdateStatus)

		// DELETE /api/orders/{id} - pending orders only
		r.Delete("/{id}", orderHandler.DeleteOrder)

		// ==================== STAFF ROUTES ====================
		// POST /api/orders/{id}/pay-cash
		r.With(middleware.Staff(log)).Post("/{id}/pay-cash", orderHandler.PayCash)
	})
}
