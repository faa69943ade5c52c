package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusServed    ReservationStatus = "served"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusNoShow    ReservationStatus = "no_show"
)

// BookingChannel decides the initial status of a new reservation.
type BookingChannel string

const (
	ChannelOnline BookingChannel = "online"
	ChannelStaff  BookingChannel = "staff"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidWindow     = errors.New("end time must be after start time")
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed: {ReservationStatusServed, ReservationStatusCompleted, ReservationStatusCancelled, ReservationStatusNoShow},
	ReservationStatusServed:    {ReservationStatusCompleted},
	ReservationStatusCompleted: {},
	ReservationStatusCancelled: {},
	ReservationStatusNoShow:    {},
}

// IsTerminal reports whether no further transition is possible.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusCompleted || s == ReservationStatusCancelled || s == ReservationStatusNoShow
}

func (s ReservationStatus) Valid() bool {
	_, ok := reservationTransitions[s]
	return ok
}

// InitialStatus is the status a reservation starts in for a booking channel.
func (c BookingChannel) InitialStatus() ReservationStatus {
	if c == ChannelStaff {
		return ReservationStatusConfirmed
	}
	return ReservationStatusPending
}

type Reservation struct {
	Base
	Versioned
	Code            string            `db:"code"`
	TableIDs        []uuid.UUID       `db:"-"`
	CustomerID      uuid.UUID         `db:"customer_id"`
	ServantID       *uuid.UUID        `db:"servant_id"`
	StartTime       time.Time         `db:"start_time"`
	EndTime         time.Time         `db:"end_time"`
	PartySize       int               `db:"party_size"`
	Status          ReservationStatus `db:"status"`
	PaymentStatus   PaymentStatus     `db:"payment_status"`
	PaymentMethod   PaymentMethod     `db:"payment_method"`
	TransactionCode *int64            `db:"transaction_code"`
	AmountDue       decimal.Decimal   `db:"amount_due"`
	OriginalAmount  *decimal.Decimal  `db:"original_amount"`
	DiscountAmount  decimal.Decimal   `db:"discount_amount"`
	CouponID        *uuid.UUID        `db:"coupon_id"`
	PaidAt          *time.Time        `db:"paid_at"`
	Note            string            `db:"note"`
}

// ValidateWindow rejects empty or inverted windows.
func ValidateWindow(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidWindow
	}
	return nil
}

func (r *Reservation) IsActive() bool {
	return !r.Status.IsTerminal()
}

func (r *Reservation) IsPaid() bool {
	return r.PaymentStatus == PaymentStatusSuccess
}

// CanTransitionTo checks the reservation lifecycle table.
func (r *Reservation) CanTransitionTo(next ReservationStatus) bool {
	for _, s := range reservationTransitions[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the reservation to next or reports why it cannot.
func (r *Reservation) TransitionTo(next ReservationStatus, now time.Time) error {
	if !r.CanTransitionTo(next) {
		return fmt.Errorf("%w: reservation %s cannot go from %s to %s", ErrInvalidTransition, r.Code, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// Serve marks the guests as seated and re-anchors the window to actual occupancy.
func (r *Reservation) Serve(now time.Time, duration time.Duration) error {
	if err := r.TransitionTo(ReservationStatusServed, now); err != nil {
		return err
	}
	r.StartTime = now
	r.EndTime = now.Add(duration)
	return nil
}

// UsesTable reports whether tableID is part of the reservation.
func (r *Reservation) UsesTable(tableID uuid.UUID) bool {
	for _, id := range r.TableIDs {
		if id == tableID {
			return true
		}
	}
	return false
}

// PayableAmount is the amount left after the reservation-level discount.
func (r *Reservation) PayableAmount(ordersTotal decimal.Decimal) decimal.Decimal {
	due := ordersTotal.Sub(r.DiscountAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
