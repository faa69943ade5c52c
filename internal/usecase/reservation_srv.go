package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/dto/response"
	"restaurant-ops/pkg/locker"
	"restaurant-ops/pkg/notifier"
	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ActionConfirm  = "confirm"
	ActionReject   = "reject"
	ActionCancel   = "cancel"
	ActionServe    = "serve"
	ActionComplete = "complete"
	ActionNoShow   = "no_show"
)

const codeAttempts = 3

type ReservationService interface {
	CreateReservation(ctx context.Context, actor utils.Identity, req *request.CreateReservationRequest) (*response.ReservationResponse, error)
	UpdateReservation(ctx context.Context, actor utils.Identity, code string, req *request.UpdateReservationRequest) (*response.ReservationResponse, error)
	UpdateStatus(ctx context.Context, actor utils.Identity, code string, req *request.UpdateReservationStatusRequest) (*response.ReservationResponse, error)

	// Lookups
	GetByCode(ctx context.Context, actor utils.Identity, code string) (*response.ReservationResponse, error)
	GetByTransactionCode(ctx context.Context, actor utils.Identity, txCode int64) (*response.ReservationResponse, error)
}

// tableHolds is how settlement detaches a reservation from its tables without
// touching the registry directly.
type tableHolds interface {
	releaseHolds(ctx context.Context, res *entity.Reservation) error
	restoreHolds(ctx context.Context, res *entity.Reservation) error
}

type reservationService struct {
	repo          *repository.Repository
	checker       *availabilityChecker
	locker        locker.Locker
	notifier      notifier.Notifier
	policy        AvailabilityPolicy
	notifyTimeout time.Duration
	log           *zap.Logger
}

func newReservationService(repo *repository.Repository, checker *availabilityChecker, lk locker.Locker, nt notifier.Notifier, policy AvailabilityPolicy, log *zap.Logger) *reservationService {
	return &reservationService{
		repo:          repo,
		checker:       checker,
		locker:        lk,
		notifier:      nt,
		policy:        policy,
		notifyTimeout: 5 * time.Second,
		log:           log.With(zap.String("service", "reservation")),
	}
}

func NewReservationService(repo *repository.Repository, lk locker.Locker, nt notifier.Notifier, policy AvailabilityPolicy, log *zap.Logger) ReservationService {
	return newReservationService(repo, newAvailabilityChecker(repo.Reservation, policy, log), lk, nt, policy, log)
}

func (s *reservationService) CreateReservation(ctx context.Context, actor utils.Identity, req *request.CreateReservationRequest) (*response.ReservationResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create reservation validation failed", zap.Any("errors", errs))
		return nil, validationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	tableIDs, err := parseTableIDs(req.TableIDs)
	if err != nil {
		return nil, err
	}

	channel := entity.ChannelOnline
	if req.Channel != "" {
		channel = entity.BookingChannel(req.Channel)
	}
	if channel == entity.ChannelStaff && !actor.IsStaff() {
		return nil, permissionError("only staff can create walk-in reservations")
	}

	customerID := actor.UserID
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, wrapCause(validationError("invalid customer ID %s", req.CustomerID), err)
		}
		if id != actor.UserID && !actor.IsStaff() {
			return nil, permissionError("cannot book on behalf of another customer")
		}
		customerID = id
	}

	tables, err := s.loadBookableTables(ctx, tableIDs, req.PartySize)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := &entity.Reservation{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		TableIDs:       tableIDs,
		CustomerID:     customerID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		PartySize:      req.PartySize,
		Status:         channel.InitialStatus(),
		PaymentStatus:  entity.PaymentStatusUnpaid,
		AmountDue:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		Note:           req.Note,
	}
	if channel == entity.ChannelStaff && actor.Role == utils.RoleServant {
		servantID := actor.UserID
		res.ServantID = &servantID
	}

	for attempt := 1; ; attempt++ {
		res.Code, err = utils.GenerateReservationCode()
		if err != nil {
			return nil, fmt.Errorf("generate reservation code: %w", err)
		}

		err = s.withTableLock(ctx, tableIDs, func() error {
			return s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
				if err := s.repo.Table.LockForUpdate(ctx, tableIDs); err != nil {
					return err
				}
				if err := s.ensureAvailable(ctx, tableIDs, res.StartTime, res.EndTime, nil); err != nil {
					return err
				}
				if err := s.repo.Reservation.Create(ctx, res); err != nil {
					return err
				}
				return s.repo.Table.AddHold(ctx, res.ID, tableIDs)
			})
		})
		if errors.Is(err, repository.ErrDuplicate) && attempt < codeAttempts {
			s.log.Warn("Reservation code collision, retrying", zap.String("code", res.Code))
			continue
		}
		break
	}
	if err != nil {
		return nil, s.mapError(err, "create reservation")
	}

	s.log.Info("Reservation created",
		zap.String("code", res.Code),
		zap.String("status", string(res.Status)),
		zap.String("customer_id", res.CustomerID.String()),
		zap.Int("tables", len(tableIDs)),
	)

	if res.Status == entity.ReservationStatusConfirmed {
		s.notifyConfirmed(res, tables)
	}

	return response.ReservationToResponse(res), nil
}

func (s *reservationService) UpdateReservation(ctx context.Context, actor utils.Identity, code string, req *request.UpdateReservationRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update reservation validation failed", zap.Any("errors", errs))
		return nil, validationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	res, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrStaff(actor, res); err != nil {
		return nil, err
	}

	tableIDs, err := parseTableIDs(req.TableIDs)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadBookableTables(ctx, tableIDs, req.PartySize); err != nil {
		return nil, err
	}

	lockIDs := unionIDs(res.TableIDs, tableIDs)
	var updated *entity.Reservation
	err = s.withTableLock(ctx, lockIDs, func() error {
		return s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.repo.Table.LockForUpdate(ctx, lockIDs); err != nil {
				return err
			}

			cur, err := s.repo.Reservation.FindByID(ctx, res.ID)
			if err != nil {
				return err
			}
			if cur == nil {
				return notFoundError("reservation %s not found", code)
			}
			if cur.Status != entity.ReservationStatusPending && cur.Status != entity.ReservationStatusConfirmed {
				return conflictError("reservation %s can no longer be edited (status %s)", code, cur.Status)
			}

			if err := s.ensureAvailable(ctx, tableIDs, req.StartTime, req.EndTime, &cur.ID); err != nil {
				return err
			}

			cur.TableIDs = tableIDs
			cur.StartTime = req.StartTime
			cur.EndTime = req.EndTime
			cur.PartySize = req.PartySize
			cur.Note = req.Note
			cur.UpdatedAt = time.Now()
			if err := s.repo.Reservation.Save(ctx, cur); err != nil {
				return err
			}

			// move the holds to the new table set
			if err := s.repo.Table.ReleaseHold(ctx, cur.ID); err != nil {
				return err
			}
			if err := s.repo.Table.AddHold(ctx, cur.ID, tableIDs); err != nil {
				return err
			}
			updated = cur
			return nil
		})
	})
	if err != nil {
		return nil, s.mapError(err, "update reservation")
	}

	s.log.Info("Reservation updated", zap.String("code", code), zap.Int("tables", len(tableIDs)))
	return response.ReservationToResponse(updated), nil
}

func (s *reservationService) UpdateStatus(ctx context.Context, actor utils.Identity, code string, req *request.UpdateReservationStatusRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	res, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizeAction(actor, res, req.Action); err != nil {
		s.log.Warn("Reservation action denied",
			zap.String("code", code),
			zap.String("action", req.Action),
			zap.String("actor", actor.UserID.String()),
		)
		return nil, err
	}

	var updated *entity.Reservation
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if req.Action == ActionServe {
			if err := s.repo.Table.LockForUpdate(ctx, res.TableIDs); err != nil {
				return err
			}
		}

		cur, err := s.repo.Reservation.FindByID(ctx, res.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return notFoundError("reservation %s not found", code)
		}
		// re-check against the fresh row; the assignment may have changed
		if err := authorizeAction(actor, cur, req.Action); err != nil {
			return err
		}

		if err := s.applyAction(cur, actor, req.Action, time.Now()); err != nil {
			return err
		}
		if err := s.repo.Reservation.Save(ctx, cur); err != nil {
			return err
		}

		switch {
		case cur.Status.IsTerminal():
			if err := s.repo.Table.ReleaseHold(ctx, cur.ID); err != nil {
				return err
			}
		case req.Action == ActionServe:
			if err := s.repo.Table.AddHold(ctx, cur.ID, cur.TableIDs); err != nil {
				return err
			}
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, "update reservation status")
	}

	s.log.Info("Reservation status changed",
		zap.String("code", code),
		zap.String("action", req.Action),
		zap.String("status", string(updated.Status)),
	)

	if req.Action == ActionConfirm {
		tables, err := s.repo.Table.FindByIDs(ctx, updated.TableIDs)
		if err != nil {
			s.log.Warn("Failed to load tables for notification", zap.Error(err), zap.String("code", code))
		}
		s.notifyConfirmed(updated, tables)
	}

	return response.ReservationToResponse(updated), nil
}

func (s *reservationService) applyAction(res *entity.Reservation, actor utils.Identity, action string, now time.Time) error {
	var err error
	switch action {
	case ActionConfirm:
		if res.ServantID == nil && actor.Role == utils.RoleServant {
			servantID := actor.UserID
			res.ServantID = &servantID
		}
		err = res.TransitionTo(entity.ReservationStatusConfirmed, now)
	case ActionReject:
		if res.Status != entity.ReservationStatusPending && res.Status != entity.ReservationStatusConfirmed {
			return conflictError("reservation %s cannot be rejected (status %s)", res.Code, res.Status)
		}
		err = res.TransitionTo(entity.ReservationStatusCancelled, now)
	case ActionCancel:
		err = res.TransitionTo(entity.ReservationStatusCancelled, now)
	case ActionServe:
		err = res.Serve(now, s.policy.DefaultDuration)
	case ActionComplete:
		err = res.TransitionTo(entity.ReservationStatusCompleted, now)
	case ActionNoShow:
		err = res.TransitionTo(entity.ReservationStatusNoShow, now)
	default:
		return validationError("unknown action %s", action)
	}
	if errors.Is(err, entity.ErrInvalidTransition) {
		return wrapCause(conflictError("cannot %s reservation %s in status %s", action, res.Code, res.Status), err)
	}
	return err
}

func (s *reservationService) GetByCode(ctx context.Context, actor utils.Identity, code string) (*response.ReservationResponse, error) {
	res, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrStaff(actor, res); err != nil {
		return nil, err
	}
	return response.ReservationToResponse(res), nil
}

func (s *reservationService) GetByTransactionCode(ctx context.Context, actor utils.Identity, txCode int64) (*response.ReservationResponse, error) {
	res, err := s.repo.Reservation.FindByTransactionCode(ctx, txCode)
	if err != nil {
		s.log.Error("Failed to find reservation by transaction code", zap.Error(err), zap.Int64("tx_code", txCode))
		return nil, fmt.Errorf("get reservation by transaction code: %w", err)
	}
	if res == nil {
		return nil, notFoundError("no reservation for transaction code %d", txCode)
	}
	if err := authorizeOwnerOrStaff(actor, res); err != nil {
		return nil, err
	}
	return response.ReservationToResponse(res), nil
}

func (s *reservationService) releaseHolds(ctx context.Context, res *entity.Reservation) error {
	return s.repo.Table.ReleaseHold(ctx, res.ID)
}

// restoreHolds re-registers a still active reservation on its tables.
func (s *reservationService) restoreHolds(ctx context.Context, res *entity.Reservation) error {
	if res.Status.IsTerminal() {
		return nil
	}
	return s.repo.Table.AddHold(ctx, res.ID, res.TableIDs)
}

func (s *reservationService) findByCode(ctx context.Context, code string) (*entity.Reservation, error) {
	res, err := s.repo.Reservation.FindByCode(ctx, code)
	if err != nil {
		s.log.Error("Failed to find reservation", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("find reservation %s: %w", code, err)
	}
	if res == nil {
		return nil, notFoundError("reservation %s not found", code)
	}
	return res, nil
}

// loadBookableTables checks that every table exists, is open and that they seat the party.
func (s *reservationService) loadBookableTables(ctx context.Context, ids []uuid.UUID, partySize int) ([]*entity.Table, error) {
	tables, err := s.repo.Table.FindByIDs(ctx, ids)
	if err != nil {
		s.log.Error("Failed to load tables", zap.Error(err))
		return nil, fmt.Errorf("load tables: %w", err)
	}
	if len(tables) != len(ids) {
		return nil, notFoundError("one or more tables not found")
	}
	for _, t := range tables {
		if !t.IsOpen {
			return nil, conflictError("table %d is not open for bookings", t.Number)
		}
	}
	if capacity := entity.TotalCapacity(tables); capacity < partySize {
		return nil, validationError("tables seat %d guests, party size is %d", capacity, partySize)
	}
	return tables, nil
}

func (s *reservationService) ensureAvailable(ctx context.Context, tableIDs []uuid.UUID, start, end time.Time, exclude *uuid.UUID) error {
	result, err := s.checker.Check(ctx, tableIDs, start, end, exclude)
	if err != nil {
		return err
	}
	if result.Available {
		return nil
	}

	conflicting := make([]string, len(result.ConflictingTableIDs))
	for i, id := range result.ConflictingTableIDs {
		conflicting[i] = id.String()
	}
	return &Error{
		Kind:    KindConflict,
		Message: "requested time conflicts with an existing reservation",
		Details: response.AvailabilityResponse{Available: false, ConflictingTableIDs: conflicting},
	}
}

// withTableLock runs fn while holding the per-table locks of every id.
func (s *reservationService) withTableLock(ctx context.Context, tableIDs []uuid.UUID, fn func() error) error {
	keys := make([]string, len(tableIDs))
	for i, id := range tableIDs {
		keys[i] = "table:" + id.String()
	}

	release, err := s.locker.Acquire(ctx, keys...)
	if errors.Is(err, locker.ErrLocked) {
		return wrapCause(conflictError("tables are being booked by another request, try again"), err)
	}
	if err != nil {
		return fmt.Errorf("lock tables: %w", err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.log.Warn("Failed to release table lock", zap.Error(err))
		}
	}()

	return fn()
}

func (s *reservationService) mapError(err error, op string) error {
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, repository.ErrStaleVersion) {
		return wrapCause(conflictError("reservation was modified concurrently, reload and retry"), err)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return wrapCause(conflictError("reservation already exists"), err)
	}
	s.log.Error("Reservation operation failed", zap.Error(err), zap.String("op", op))
	return fmt.Errorf("%s: %w", op, err)
}

// notifyConfirmed dispatches the confirmation in the background; failures are only logged.
func (s *reservationService) notifyConfirmed(res *entity.Reservation, tables []*entity.Table) {
	event := notifier.ReservationConfirmed{
		ReservationCode: res.Code,
		CustomerID:      res.CustomerID.String(),
		PartySize:       res.PartySize,
		StartTime:       res.StartTime,
		EndTime:         res.EndTime,
		ConfirmedAt:     res.UpdatedAt,
	}
	if res.ServantID != nil {
		event.ServantID = res.ServantID.String()
	}
	for _, t := range tables {
		event.TableNumbers = append(event.TableNumbers, t.Number)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.ReservationConfirmed(ctx, event); err != nil {
			s.log.Warn("Failed to send confirmation", zap.Error(err), zap.String("code", event.ReservationCode))
		}
	}()
}

// authorizeOwnerOrStaff lets the booking customer and any staff member through.
func authorizeOwnerOrStaff(actor utils.Identity, res *entity.Reservation) error {
	if actor.IsStaff() || res.CustomerID == actor.UserID {
		return nil
	}
	return permissionError("reservation %s belongs to another customer", res.Code)
}

// authorizeAction applies the per-action role rules. Servants may only act on
// reservations assigned to them or not yet assigned; admins act on any.
func authorizeAction(actor utils.Identity, res *entity.Reservation, action string) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.Role == utils.RoleServant:
		if res.ServantID != nil && *res.ServantID != actor.UserID {
			return permissionError("reservation %s is assigned to another servant", res.Code)
		}
		return nil
	case action == ActionCancel && res.CustomerID == actor.UserID:
		return nil
	case action == ActionCancel:
		return permissionError("reservation %s belongs to another customer", res.Code)
	default:
		return permissionError("only staff can %s a reservation", action)
	}
}

func unionIDs(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(a)+len(b))
	out := make([]uuid.UUID, 0, len(a)+len(b))
	for _, list := range [][]uuid.UUID{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
