package adaptor

import (
	"net/http"
	"strconv"

	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/usecase"
	"restaurant-ops/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReservationHandler struct {
	service      usecase.ReservationService
	availability usecase.AvailabilityService
	log          *zap.Logger
}

func NewReservationHandler(service usecase.ReservationService, availability usecase.AvailabilityService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		service:      service,
		availability: availability,
		log:          log.With(zap.String("handler", "reservation")),
	}
}

// CheckAvailability handles POST /api/availability
func (h *ReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req request.CheckAvailabilityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.availability.CheckAvailability(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "check availability")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// CreateReservation handles POST /api/reservations
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	var req request.CreateReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create reservation")
		return
	}

	utils.ResponseCreated(w, "success", reservation)
}

// GetReservation handles GET /api/reservations/{code}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	reservation, err := h.service.GetByCode(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "get reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// GetByTransaction handles GET /api/reservations/transactions/{txCode}
func (h *ReservationHandler) GetByTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	txCode, err := strconv.ParseInt(chi.URLParam(r, "txCode"), 10, 64)
	if err != nil || txCode <= 0 {
		utils.ResponseBadRequest(w, "Invalid transaction code", nil)
		return
	}

	reservation, err := h.service.GetByTransactionCode(r.Context(), actor, txCode)
	if err != nil {
		handleServiceError(w, h.log, err, "get reservation by transaction")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// UpdateReservation handles PUT /api/reservations/{code}
func (h *ReservationHandler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	var req request.UpdateReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reservation, err := h.service.UpdateReservation(r.Context(), actor, chi.URLParam(r, "code"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// UpdateStatus handles PUT /api/reservations/{code}/status
func (h *ReservationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(w, r)
	if !ok {
		return
	}

	var req request.UpdateReservationStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reservation, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "code"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update reservation status")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}
