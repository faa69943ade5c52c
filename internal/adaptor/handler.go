package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"restaurant-ops/internal/usecase"
	"restaurant-ops/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Table       *TableHandler
	Reservation *ReservationHandler
	Order       *OrderHandler
	Coupon      *CouponHandler
	Payment     *PaymentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Table:       NewTableHandler(service.Table, log),
		Reservation: NewReservationHandler(service.Reservation, service.Availability, log),
		Order:       NewOrderHandler(service.Order, log),
		Coupon:      NewCouponHandler(service.Coupon, log),
		Payment:     NewPaymentHandler(service.Payment, log),
	}
}

// decodeBody reads a JSON request body into dst, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// caller returns the identity set by the identity middleware, answering 401 itself when absent.
func caller(w http.ResponseWriter, r *http.Request) (utils.Identity, bool) {
	id, ok := utils.GetIdentity(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return utils.Identity{}, false
	}
	return id, true
}

// handleServiceError maps typed service errors to REST status codes
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var typed *usecase.Error
	if !errors.As(err, &typed) {
		log.Error(operation+" failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("kind", typed.Kind.String()),
		zap.String("reason", typed.Message),
	}

	switch typed.Kind {
	case usecase.KindValidation:
		log.Warn(operation+" validation failed", fields...)
		utils.ResponseBadRequest(w, typed.Message, typed.Details)

	case usecase.KindConflict:
		log.Warn(operation+" failed - conflict", fields...)
		utils.ResponseConflict(w, typed.Message, typed.Details)

	case usecase.KindNotFound:
		log.Warn(operation+" failed - not found", fields...)
		utils.ResponseNotFound(w, typed.Message)

	case usecase.KindPermission:
		log.Warn(operation+" failed - forbidden", fields...)
		utils.ResponseForbidden(w, typed.Message)

	case usecase.KindExternal:
		log.Error(operation+" failed - upstream", append(fields, zap.Error(err))...)
		utils.ResponseBadGateway(w, typed.Message)

	default:
		log.Error(operation+" failed", append(fields, zap.Error(err))...)
		utils.ResponseInternalError(w, "Internal server error")
	}
}
