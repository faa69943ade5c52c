package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusConfirmed    OrderStatus = "confirmed"
	OrderStatusPreparing    OrderStatus = "preparing"
	OrderStatusReadyToServe OrderStatus = "ready_to_serve"
	OrderStatusServed       OrderStatus = "served"
	OrderStatusCompleted    OrderStatus = "completed"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// orderFlow is the forward path; cancelled is reachable from any non-terminal step.
var orderFlow = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReadyToServe,
	OrderStatusServed,
	OrderStatusCompleted,
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	for _, f := range orderFlow {
		if f == s {
			return true
		}
	}
	return false
}

// Next returns the status following s on the forward path.
func (s OrderStatus) Next() (OrderStatus, bool) {
	for i, f := range orderFlow {
		if f == s && i+1 < len(orderFlow) {
			return orderFlow[i+1], true
		}
	}
	return "", false
}

type OrderLine struct {
	FoodID    uuid.UUID       `json:"food_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderCombo struct {
	ComboID   uuid.UUID       `json:"combo_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type TableOrder struct {
	Base
	Versioned
	TableID        uuid.UUID        `db:"table_id"`
	ReservationID  *uuid.UUID       `db:"reservation_id"`
	Items          []OrderLine      `db:"items"`
	Combos         []OrderCombo     `db:"combos"`
	Status         OrderStatus      `db:"status"`
	PaymentStatus  PaymentStatus    `db:"payment_status"`
	PaymentMethod  PaymentMethod    `db:"payment_method"`
	TotalPrice     decimal.Decimal  `db:"total_price"`
	OriginalPrice  *decimal.Decimal `db:"original_price"`
	DiscountAmount decimal.Decimal  `db:"discount_amount"`
	CouponID       *uuid.UUID       `db:"coupon_id"`
	CreatedBy      uuid.UUID        `db:"created_by"`
	CompletedAt    *time.Time       `db:"completed_at"`
	PaidAt         *time.Time       `db:"paid_at"`
}

// ComputeTotal prices lines and combos from scratch.
func ComputeTotal(items []OrderLine, combos []OrderCombo) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	for _, c := range combos {
		total = total.Add(c.UnitPrice)
	}
	return total
}

// SetLines replaces the line items and recomputes the total.
func (o *TableOrder) SetLines(items []OrderLine, combos []OrderCombo, now time.Time) {
	o.Items = items
	o.Combos = combos
	o.TotalPrice = ComputeTotal(items, combos)
	o.UpdatedAt = now
}

// FinalPrice is the total minus any applied discount, never negative.
func (o *TableOrder) FinalPrice() decimal.Decimal {
	p := o.TotalPrice.Sub(o.DiscountAmount)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// Editable reports whether line items may still change.
func (o *TableOrder) Editable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

func (o *TableOrder) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusSuccess
}

func (o *TableOrder) CanTransitionTo(next OrderStatus) bool {
	if o.Status.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	n, ok := o.Status.Next()
	return ok && n == next
}

// TransitionTo advances the order; completion stamps CompletedAt.
func (o *TableOrder) TransitionTo(next OrderStatus, now time.Time) error {
	if !o.CanTransitionTo(next) {
		return fmt.Errorf("%w: order %s cannot go from %s to %s", ErrInvalidTransition, o.ID, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = now
	if next == OrderStatusCompleted {
		o.CompletedAt = &now
	}
	return nil
}
