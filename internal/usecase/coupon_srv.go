package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/dto/response"
	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CouponService interface {
	ApplyCoupon(ctx context.Context, actor utils.Identity, req *request.ApplyCouponRequest) (*response.ApplyCouponResponse, error)
}

type couponService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewCouponService(repo *repository.Repository, log *zap.Logger) CouponService {
	return &couponService{
		repo: repo,
		log:  log.With(zap.String("service", "coupon")),
	}
}

// discountTarget is the order or reservation a coupon is applied to.
type discountTarget interface {
	scope() entity.CouponScope
	id() string
	owner() uuid.UUID
	paid() bool
	hasCoupon() bool
	total(ctx context.Context, repo *repository.Repository) (decimal.Decimal, error)
	applyDiscount(couponID uuid.UUID, original, discount decimal.Decimal, now time.Time)
	save(ctx context.Context, repo *repository.Repository) error
}

type orderTarget struct {
	order *entity.TableOrder
	res   *entity.Reservation
}

func (t *orderTarget) scope() entity.CouponScope { return entity.CouponScopeOrder }
func (t *orderTarget) id() string                { return t.order.ID.String() }
func (t *orderTarget) paid() bool                { return t.order.IsPaid() }
func (t *orderTarget) hasCoupon() bool           { return t.order.CouponID != nil }

func (t *orderTarget) owner() uuid.UUID {
	if t.res != nil {
		return t.res.CustomerID
	}
	return t.order.CreatedBy
}

func (t *orderTarget) total(context.Context, *repository.Repository) (decimal.Decimal, error) {
	return t.order.TotalPrice, nil
}

func (t *orderTarget) applyDiscount(couponID uuid.UUID, original, discount decimal.Decimal, now time.Time) {
	t.order.CouponID = &couponID
	t.order.OriginalPrice = &original
	t.order.DiscountAmount = discount
	t.order.UpdatedAt = now
}

func (t *orderTarget) save(ctx context.Context, repo *repository.Repository) error {
	return repo.TableOrder.Save(ctx, t.order)
}

type reservationTarget struct {
	res *entity.Reservation
}

func (t *reservationTarget) scope() entity.CouponScope { return entity.CouponScopeReservation }
func (t *reservationTarget) id() string                { return t.res.Code }
func (t *reservationTarget) owner() uuid.UUID          { return t.res.CustomerID }
func (t *reservationTarget) paid() bool                { return t.res.IsPaid() }
func (t *reservationTarget) hasCoupon() bool           { return t.res.CouponID != nil }

// total of a reservation is the sum of its unpaid, non-cancelled orders after their own discounts.
func (t *reservationTarget) total(ctx context.Context, repo *repository.Repository) (decimal.Decimal, error) {
	orders, err := repo.TableOrder.FindByReservationID(ctx, t.res.ID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, o := range orders {
		if o.Status == entity.OrderStatusCancelled || o.IsPaid() {
			continue
		}
		sum = sum.Add(o.FinalPrice())
	}
	return sum, nil
}

func (t *reservationTarget) applyDiscount(couponID uuid.UUID, original, discount decimal.Decimal, now time.Time) {
	t.res.CouponID = &couponID
	t.res.OriginalAmount = &original
	t.res.DiscountAmount = discount
	t.res.AmountDue = original.Sub(discount)
	t.res.UpdatedAt = now
}

func (t *reservationTarget) save(ctx context.Context, repo *repository.Repository) error {
	return repo.Reservation.Save(ctx, t.res)
}

func (s *couponService) ApplyCoupon(ctx context.Context, actor utils.Identity, req *request.ApplyCouponRequest) (*response.ApplyCouponResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Apply coupon validation failed", zap.Any("errors", errs))
		return nil, validationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}
	code := strings.ToUpper(strings.TrimSpace(req.CouponCode))

	var result *response.ApplyCouponResponse
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		now := time.Now()

		target, err := s.loadTarget(ctx, req)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && target.owner() != actor.UserID {
			return permissionError("cannot apply a coupon to another customer's %s", target.scope())
		}

		// preconditions, in order
		if target.paid() {
			return conflictError("%s %s is already paid", target.scope(), target.id())
		}
		if target.hasCoupon() {
			return conflictError("%s %s already has a coupon applied", target.scope(), target.id())
		}

		coupon, err := s.repo.Coupon.FindByCode(ctx, code)
		if err != nil {
			return err
		}
		if coupon == nil {
			return notFoundError("coupon %s not found", code)
		}
		if err := coupon.RedeemableAt(now); err != nil {
			return wrapCause(conflictError("coupon %s cannot be used: %v", code, err), err)
		}
		if !coupon.AppliesTo(target.scope()) {
			return wrapCause(validationError("coupon %s does not apply to a %s", code, target.scope()), entity.ErrCouponWrongScope)
		}
		if coupon.RequiresOwnership() {
			owned, err := s.repo.Coupon.IsOwnedBy(ctx, coupon.ID, target.owner())
			if err != nil {
				return err
			}
			if !owned {
				return permissionError("coupon %s must be redeemed with points first", code)
			}
		}

		original, err := target.total(ctx, s.repo)
		if err != nil {
			return err
		}
		discount := coupon.Discount(original)

		// decrement and discount land together or not at all
		if err := s.repo.Coupon.Redeem(ctx, coupon.ID, now); err != nil {
			if errors.Is(err, repository.ErrCouponUnavailable) {
				return wrapCause(conflictError("coupon %s is no longer available", code), err)
			}
			return err
		}
		target.applyDiscount(coupon.ID, original, discount, now)
		if err := target.save(ctx, s.repo); err != nil {
			return err
		}

		result = &response.ApplyCouponResponse{
			CouponCode:     coupon.Code,
			TargetType:     string(target.scope()),
			TargetID:       target.id(),
			OriginalPrice:  original,
			DiscountAmount: discount,
			FinalPrice:     original.Sub(discount),
		}
		return nil
	})
	if err != nil {
		var typed *Error
		if errors.As(err, &typed) {
			s.log.Info("Coupon not applied", zap.String("coupon", code), zap.String("reason", typed.Message))
			return nil, err
		}
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, wrapCause(conflictError("target was modified concurrently, retry"), err)
		}
		s.log.Error("Failed to apply coupon", zap.Error(err), zap.String("coupon", code))
		return nil, fmt.Errorf("apply coupon: %w", err)
	}

	s.log.Info("Coupon applied",
		zap.String("coupon", code),
		zap.String("target", result.TargetType+":"+result.TargetID),
		zap.String("discount", result.DiscountAmount.String()),
	)
	return result, nil
}

func (s *couponService) loadTarget(ctx context.Context, req *request.ApplyCouponRequest) (discountTarget, error) {
	if req.OrderID != "" {
		id, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, wrapCause(validationError("invalid order ID %s", req.OrderID), err)
		}
		order, err := s.repo.TableOrder.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, notFoundError("order %s not found", req.OrderID)
		}
		if order.Status == entity.OrderStatusCancelled {
			return nil, conflictError("order %s is cancelled", req.OrderID)
		}
		t := &orderTarget{order: order}
		if order.ReservationID != nil {
			if t.res, err = s.repo.Reservation.FindByID(ctx, *order.ReservationID); err != nil {
				return nil, err
			}
		}
		return t, nil
	}

	res, err := s.repo.Reservation.FindByCode(ctx, req.ReservationCode)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, notFoundError("reservation %s not found", req.ReservationCode)
	}
	if res.Status == entity.ReservationStatusCancelled || res.Status == entity.ReservationStatusNoShow {
		return nil, conflictError("reservation %s is %s", res.Code, res.Status)
	}
	return &reservationTarget{res: res}, nil
}
