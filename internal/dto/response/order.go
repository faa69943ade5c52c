package response

import (
	"time"

	"restaurant-ops/internal/data/entity"

	"github.com/shopspring/decimal"
)

type OrderLineResponse struct {
	FoodID    string          `json:"food_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderComboResponse struct {
	ComboID   string          `json:"combo_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderResponse struct {
	ID             string               `json:"id"`
	TableID        string               `json:"table_id"`
	ReservationID  *string              `json:"reservation_id,omitempty"`
	Items          []OrderLineResponse  `json:"items"`
	Combos         []OrderComboResponse `json:"combos"`
	Status         entity.OrderStatus   `json:"status"`
	PaymentStatus  entity.PaymentStatus `json:"payment_status"`
	PaymentMethod  entity.PaymentMethod `json:"payment_method,omitempty"`
	TotalPrice     decimal.Decimal      `json:"total_price"`
	OriginalPrice  *decimal.Decimal     `json:"original_price,omitempty"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	FinalPrice     decimal.Decimal      `json:"final_price"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	PaidAt         *time.Time           `json:"paid_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func OrderToResponse(o *entity.TableOrder) *OrderResponse {
	items := make([]OrderLineResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderLineResponse{FoodID: it.FoodID.String(), Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	combos := make([]OrderComboResponse, len(o.Combos))
	for i, c := range o.Combos {
		combos[i] = OrderComboResponse{ComboID: c.ComboID.String(), UnitPrice: c.UnitPrice}
	}

	resp := &OrderResponse{
		ID:             o.ID.String(),
		TableID:        o.TableID.String(),
		Items:          items,
		Combos:         combos,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		PaymentMethod:  o.PaymentMethod,
		TotalPrice:     o.TotalPrice,
		OriginalPrice:  o.OriginalPrice,
		DiscountAmount: o.DiscountAmount,
		FinalPrice:     o.FinalPrice(),
		CompletedAt:    o.CompletedAt,
		PaidAt:         o.PaidAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.ReservationID != nil {
		s := o.ReservationID.String()
		resp.ReservationID = &s
	}
	return resp
}

func OrdersToResponse(orders []*entity.TableOrder) []*OrderResponse {
	out := make([]*OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = OrderToResponse(o)
	}
	return out
}
