package request

import "time"

type CheckAvailabilityRequest struct {
	TableIDs  []string  `json:"table_ids" validate:"required,min=1,dive,uuid4"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

type CreateReservationRequest struct {
	TableIDs  []string  `json:"table_ids" validate:"required,min=1,dive,uuid4"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	PartySize int       `json:"party_size" validate:"required,min=1"`
	// Channel defaults to online; staff bookings are confirmed immediately.
	Channel    string `json:"channel" validate:"omitempty,oneof=online staff"`
	CustomerID string `json:"customer_id" validate:"omitempty,uuid4"`
	Note       string `json:"note" validate:"max=500"`
}

type UpdateReservationRequest struct {
	TableIDs  []string  `json:"table_ids" validate:"required,min=1,dive,uuid4"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	PartySize int       `json:"party_size" validate:"required,min=1"`
	Note      string    `json:"note" validate:"max=500"`
}

type UpdateReservationStatusRequest struct {
	Action string `json:"action" validate:"required,oneof=confirm reject cancel serve complete no_show"`
}
