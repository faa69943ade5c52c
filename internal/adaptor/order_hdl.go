package adaptor

import (
	"net/http"

	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/usecase"
	"restaurant-ops/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service usecase.OrderService
	log     *zap.Logger
}

func NewOrderHandler(service usecase.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		log:     log.With(zap.String("handler", "order")),
	}
}

// CreateOrder handles POST /api/reservations/{code}/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	var req request.CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), actor, chi.URLParam(r, "code"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create order")
		return
	}

	utils.ResponseCreated(w, "success", order)
}

// ListOrders handles GET /api/reservations/{code}/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "list orders")
		return
	}

	utils.ResponseSuccess(w, "success", orders)
}

// UpdateItems handles PUT /api/orders/{id}
func (h *OrderHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	var req request.UpdateOrderItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.service.UpdateItems(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update order items")
		return
	}

	utils.ResponseSuccess(w, "success", order)
}

// UpdateStatus handles PUT /api/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	var req request.UpdateOrderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update order status")
		return
	}

	utils.ResponseSuccess(w, "success", order)
}

// DeleteOrder handles DELETE /api/orders/{id}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "delete order")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// PayCash handles POST /api/orders/{id}/pay-cash (staff)
func (h *OrderHandler) PayCash(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	order, err := h.service.PayCash(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "pay order cash")
		return
	}

	utils.ResponseSuccess(w, "success", order)
}
