package request

type OrderLineRequest struct {
	FoodID   string `json:"food_id" validate:"required,uuid4"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	TableID  string             `json:"table_id" validate:"required,uuid4"`
	Items    []OrderLineRequest `json:"items" validate:"dive"`
	ComboIDs []string           `json:"combo_ids" validate:"dive,uuid4"`
}

type UpdateOrderItemsRequest struct {
	Items    []OrderLineRequest `json:"items" validate:"dive"`
	ComboIDs []string           `json:"combo_ids" validate:"dive,uuid4"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed preparing ready_to_serve served completed cancelled"`
}
