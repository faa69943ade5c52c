package entity

import "time"

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodNone    PaymentMethod = ""
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodGateway PaymentMethod = "gateway"
)

// PollStatus is the provider-agnostic view handed to polling clients.
type PollStatus string

const (
	PollPaid    PollStatus = "PAID"
	PollFailed  PollStatus = "FAILED"
	PollPending PollStatus = "PENDING"
)

// Poll maps a stored payment status to the tri-state clients poll on.
func (s PaymentStatus) Poll() PollStatus {
	switch s {
	case PaymentStatusSuccess:
		return PollPaid
	case PaymentStatusFailed:
		return PollFailed
	default:
		return PollPending
	}
}

// Settlement is the outcome of a successful payment applied to a reservation
// and fanned out to its orders.
type Settlement struct {
	Method PaymentMethod
	PaidAt time.Time
}
