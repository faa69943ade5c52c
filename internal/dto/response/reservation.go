package response

import (
	"time"

	"restaurant-ops/internal/data/entity"

	"github.com/shopspring/decimal"
)

type AvailabilityResponse struct {
	Available           bool     `json:"available"`
	ConflictingTableIDs []string `json:"conflicting_table_ids"`
}

type TableResponse struct {
	ID                  string   `json:"id"`
	Number              int      `json:"number"`
	Capacity            int      `json:"capacity"`
	IsOpen              bool     `json:"is_open"`
	CurrentReservations []string `json:"current_reservations"`
}

type ReservationResponse struct {
	ID              string                   `json:"id"`
	Code            string                   `json:"code"`
	TableIDs        []string                 `json:"table_ids"`
	CustomerID      string                   `json:"customer_id"`
	ServantID       *string                  `json:"servant_id,omitempty"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         time.Time                `json:"end_time"`
	PartySize       int                      `json:"party_size"`
	Status          entity.ReservationStatus `json:"status"`
	PaymentStatus   entity.PaymentStatus     `json:"payment_status"`
	PaymentMethod   entity.PaymentMethod     `json:"payment_method,omitempty"`
	TransactionCode *int64                   `json:"transaction_code,omitempty"`
	AmountDue       decimal.Decimal          `json:"amount_due"`
	OriginalAmount  *decimal.Decimal         `json:"original_amount,omitempty"`
	DiscountAmount  decimal.Decimal          `json:"discount_amount"`
	PaidAt          *time.Time               `json:"paid_at,omitempty"`
	Note            string                   `json:"note,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// Helper converters
func ReservationToResponse(r *entity.Reservation) *ReservationResponse {
	tableIDs := make([]string, len(r.TableIDs))
	for i, id := range r.TableIDs {
		tableIDs[i] = id.String()
	}

	resp := &ReservationResponse{
		ID:              r.ID.String(),
		Code:            r.Code,
		TableIDs:        tableIDs,
		CustomerID:      r.CustomerID.String(),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		PartySize:       r.PartySize,
		Status:          r.Status,
		PaymentStatus:   r.PaymentStatus,
		PaymentMethod:   r.PaymentMethod,
		TransactionCode: r.TransactionCode,
		AmountDue:       r.AmountDue,
		OriginalAmount:  r.OriginalAmount,
		DiscountAmount:  r.DiscountAmount,
		PaidAt:          r.PaidAt,
		Note:            r.Note,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.ServantID != nil {
		s := r.ServantID.String()
		resp.ServantID = &s
	}
	return resp
}

// TableToResponse renders a table with the codes of the reservations holding it.
func TableToResponse(t *entity.Table, holderCodes []string) *TableResponse {
	if holderCodes == nil {
		holderCodes = []string{}
	}
	return &TableResponse{
		ID:                  t.ID.String(),
		Number:              t.Number,
		Capacity:            t.Capacity,
		IsOpen:              t.IsOpen,
		CurrentReservations: holderCodes,
	}
}
