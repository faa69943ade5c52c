package usecase

import (
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/pkg/locker"
	"restaurant-ops/pkg/notifier"
	"restaurant-ops/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Table        TableService
	Availability AvailabilityService
	Reservation  ReservationService
	Order        OrderService
	Coupon       CouponService
	Payment      PaymentService
}

// Deps are the external collaborators the services call out to.
type Deps struct {
	Locker   locker.Locker
	Notifier notifier.Notifier
	Gateway  PaymentGateway
}

func NewService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) *Service {
	policy := NewAvailabilityPolicy(config.Booking)
	checker := newAvailabilityChecker(repo.Reservation, policy, log)
	reservations := newReservationService(repo, checker, deps.Locker, deps.Notifier, policy, log)

	return &Service{
		Table:        NewTableService(repo, log),
		Availability: checker,
		Reservation:  reservations,
		Order:        NewOrderService(repo, log),
		Coupon:       NewCouponService(repo, log),
		Payment:      newPaymentService(repo, deps.Gateway, reservations, log),
	}
}
