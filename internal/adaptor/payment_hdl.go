package adaptor

import (
	"encoding/json"
	"net/http"

	"restaurant-ops/internal/usecase"
	"restaurant-ops/pkg/payos"
	"restaurant-ops/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreateIntent handles POST /api/payments/{code}/intent
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	intent, err := h.service.CreateIntent(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "create payment intent")
		return
	}

	utils.ResponseCreated(w, "success", intent)
}

// PayCash handles POST /api/payments/{code}/cash (staff)
func (h *PaymentHandler) PayCash(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	reservation, err := h.service.PayCash(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "pay reservation cash")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// GetStatus handles GET /api/payments/{code}/status
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetStatus(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "get payment status")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}

// Webhook handles POST /api/payments/webhook. The gateway retries anything but a 200,
// so every outcome is acknowledged and only logged.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var webhook payos.Webhook
	if err := json.NewDecoder(r.Body).Decode(&webhook); err != nil {
		h.log.Warn("Unreadable webhook body", zap.Error(err))
		utils.ResponseSuccess(w, "ignored", usecase.WebhookResult{Reason: "invalid body"})
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), &webhook)
	if err != nil {
		h.log.Error("Webhook processing failed",
			zap.Error(err),
			zap.Int64("order_code", webhook.Data.OrderCode))
		utils.ResponseSuccess(w, "ignored", usecase.WebhookResult{Reason: "processing error"})
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
