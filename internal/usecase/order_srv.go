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
	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, actor utils.Identity, reservationCode string, req *request.CreateOrderRequest) (*response.OrderResponse, error)
	ListOrders(ctx context.Context, actor utils.Identity, reservationCode string) ([]*response.OrderResponse, error)
	UpdateItems(ctx context.Context, actor utils.Identity, orderID string, req *request.UpdateOrderItemsRequest) (*response.OrderResponse, error)
	UpdateStatus(ctx context.Context, actor utils.Identity, orderID string, req *request.UpdateOrderStatusRequest) (*response.OrderResponse, error)
	DeleteOrder(ctx context.Context, actor utils.Identity, orderID string) error

	// Per-order cash settlement, kept for orders paid one by one at the table.
	PayCash(ctx context.Context, actor utils.Identity, orderID string) (*response.OrderResponse, error)
}

type orderService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewOrderService(repo *repository.Repository, log *zap.Logger) OrderService {
	return &orderService{
		repo: repo,
		log:  log.With(zap.String("service", "order")),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, actor utils.Identity, reservationCode string, req *request.CreateOrderRequest) (*response.OrderResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create order validation failed", zap.Any("errors", errs))
		return nil, validationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		return nil, wrapCause(validationError("invalid table ID %s", req.TableID), err)
	}

	res, err := s.findReservation(ctx, reservationCode)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrStaff(actor, res); err != nil {
		return nil, err
	}
	if err := orderableReservation(res); err != nil {
		return nil, err
	}
	if err := checkoutClosed(res); err != nil {
		return nil, err
	}
	if !res.UsesTable(tableID) {
		return nil, validationError("table %s is not part of reservation %s", tableID, res.Code)
	}

	items, combos, err := s.priceLines(ctx, req.Items, req.ComboIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reservationID := res.ID
	order := &entity.TableOrder{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		TableID:        tableID,
		ReservationID:  &reservationID,
		Status:         entity.OrderStatusPending,
		PaymentStatus:  entity.PaymentStatusUnpaid,
		DiscountAmount: decimal.Zero,
		CreatedBy:      actor.UserID,
	}
	order.SetLines(items, combos, now)

	if err := s.repo.TableOrder.Create(ctx, order); err != nil {
		s.log.Error("Failed to create order", zap.Error(err), zap.String("reservation", res.Code))
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("reservation", res.Code),
		zap.String("total", order.TotalPrice.String()),
	)

	return response.OrderToResponse(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, actor utils.Identity, reservationCode string) ([]*response.OrderResponse, error) {
	res, err := s.findReservation(ctx, reservationCode)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrStaff(actor, res); err != nil {
		return nil, err
	}

	orders, err := s.repo.TableOrder.FindByReservationID(ctx, res.ID)
	if err != nil {
		s.log.Error("Failed to list orders", zap.Error(err), zap.String("reservation", res.Code))
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return response.OrdersToResponse(orders), nil
}

func (s *orderService) UpdateItems(ctx context.Context, actor utils.Identity, orderID string, req *request.UpdateOrderItemsRequest) (*response.OrderResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	items, combos, err := s.priceLines(ctx, req.Items, req.ComboIDs)
	if err != nil {
		return nil, err
	}

	order, err := s.mutate(ctx, actor, orderID, func(order *entity.TableOrder, res *entity.Reservation) error {
		if res != nil {
			if err := checkoutClosed(res); err != nil {
				return err
			}
		}
		if !order.Editable() {
			return conflictError("order items can no longer change (status %s)", order.Status)
		}
		if order.IsPaid() {
			return conflictError("order is already paid")
		}
		order.SetLines(items, combos, time.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Order items updated", zap.String("order_id", orderID), zap.String("total", order.TotalPrice.String()))
	return response.OrderToResponse(order), nil
}

func (s *orderService) UpdateStatus(ctx context.Context, actor utils.Identity, orderID string, req *request.UpdateOrderStatusRequest) (*response.OrderResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}
	next := entity.OrderStatus(req.Status)

	order, err := s.mutate(ctx, actor, orderID, func(order *entity.TableOrder, _ *entity.Reservation) error {
		// customers may only withdraw their own order before the kitchen accepts it
		if !actor.IsStaff() && (next != entity.OrderStatusCancelled || order.Status != entity.OrderStatusPending) {
			return permissionError("only staff can move an order to %s", next)
		}
		if err := order.TransitionTo(next, time.Now()); err != nil {
			return wrapCause(conflictError("cannot move order from %s to %s", order.Status, next), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Order status changed", zap.String("order_id", orderID), zap.String("status", string(order.Status)))
	return response.OrderToResponse(order), nil
}

func (s *orderService) DeleteOrder(ctx context.Context, actor utils.Identity, orderID string) error {
	order, res, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	if res != nil {
		if err := authorizeOwnerOrStaff(actor, res); err != nil {
			return err
		}
	} else if !actor.IsStaff() {
		return permissionError("only staff can delete this order")
	}

	if err := s.repo.TableOrder.Delete(ctx, order.ID); err != nil {
		if errors.Is(err, repository.ErrNotDeletable) {
			return wrapCause(conflictError("only pending orders can be deleted"), err)
		}
		s.log.Error("Failed to delete order", zap.Error(err), zap.String("order_id", orderID))
		return fmt.Errorf("delete order: %w", err)
	}

	s.log.Info("Order deleted", zap.String("order_id", orderID))
	return nil
}

func (s *orderService) PayCash(ctx context.Context, actor utils.Identity, orderID string) (*response.OrderResponse, error) {
	if !actor.IsStaff() {
		return nil, permissionError("only staff can confirm cash payments")
	}

	order, _, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, conflictError("order is already paid")
	}
	if order.Status != entity.OrderStatusCompleted {
		return nil, conflictError("only completed orders can be paid (status %s)", order.Status)
	}

	settlement := entity.Settlement{Method: entity.PaymentMethodCash, PaidAt: time.Now()}
	applied, err := s.repo.TableOrder.MarkPaid(ctx, order.ID, settlement)
	if err != nil {
		s.log.Error("Failed to settle order", zap.Error(err), zap.String("order_id", orderID))
		return nil, fmt.Errorf("pay order: %w", err)
	}
	if !applied {
		return nil, conflictError("order is already paid")
	}

	paid, err := s.repo.TableOrder.FindByID(ctx, order.ID)
	if err != nil || paid == nil {
		return nil, fmt.Errorf("reload paid order %s: %w", orderID, err)
	}

	s.log.Info("Order paid in cash", zap.String("order_id", orderID), zap.String("amount", paid.FinalPrice().String()))
	return response.OrderToResponse(paid), nil
}

// mutate loads the order and its reservation inside a transaction, applies fn
// and saves the result with the version check.
func (s *orderService) mutate(ctx context.Context, actor utils.Identity, orderID string, fn func(*entity.TableOrder, *entity.Reservation) error) (*entity.TableOrder, error) {
	var out *entity.TableOrder
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		order, res, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		if res != nil {
			if err := authorizeOwnerOrStaff(actor, res); err != nil {
				return err
			}
			if err := orderableReservation(res); err != nil {
				return err
			}
		} else if !actor.IsStaff() {
			return permissionError("only staff can change this order")
		}

		if err := fn(order, res); err != nil {
			return err
		}
		if err := s.repo.TableOrder.Save(ctx, order); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		var typed *Error
		if errors.As(err, &typed) {
			return nil, err
		}
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, wrapCause(conflictError("order was modified concurrently, reload and retry"), err)
		}
		s.log.Error("Failed to update order", zap.Error(err), zap.String("order_id", orderID))
		return nil, fmt.Errorf("update order: %w", err)
	}
	return out, nil
}

func (s *orderService) load(ctx context.Context, orderID string) (*entity.TableOrder, *entity.Reservation, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, nil, wrapCause(validationError("invalid order ID %s", orderID), err)
	}

	order, err := s.repo.TableOrder.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, nil, notFoundError("order %s not found", orderID)
	}
	if order.ReservationID == nil {
		return order, nil, nil
	}

	res, err := s.repo.Reservation.FindByID(ctx, *order.ReservationID)
	if err != nil {
		return nil, nil, fmt.Errorf("find reservation of order %s: %w", orderID, err)
	}
	return order, res, nil
}

func (s *orderService) findReservation(ctx context.Context, code string) (*entity.Reservation, error) {
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

// priceLines resolves menu prices for the requested lines; repeated foods are merged.
func (s *orderService) priceLines(ctx context.Context, lines []request.OrderLineRequest, comboIDs []string) ([]entity.OrderLine, []entity.OrderCombo, error) {
	if len(lines) == 0 && len(comboIDs) == 0 {
		return nil, nil, validationError("an order needs at least one item or combo")
	}

	quantities := make(map[uuid.UUID]int)
	var foodIDs []uuid.UUID
	for _, l := range lines {
		id, err := uuid.Parse(l.FoodID)
		if err != nil {
			return nil, nil, wrapCause(validationError("invalid food ID %s", l.FoodID), err)
		}
		if _, seen := quantities[id]; !seen {
			foodIDs = append(foodIDs, id)
		}
		quantities[id] += l.Quantity
	}

	parsedCombos := make([]uuid.UUID, 0, len(comboIDs))
	for _, raw := range comboIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil, wrapCause(validationError("invalid combo ID %s", raw), err)
		}
		parsedCombos = append(parsedCombos, id)
	}

	items := make([]entity.OrderLine, 0, len(foodIDs))
	if len(foodIDs) > 0 {
		foods, err := s.repo.Menu.FindFoodsByIDs(ctx, foodIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("load foods: %w", err)
		}
		byID := make(map[uuid.UUID]*entity.Food, len(foods))
		for _, f := range foods {
			byID[f.ID] = f
		}
		for _, id := range foodIDs {
			f, ok := byID[id]
			if !ok {
				return nil, nil, notFoundError("food %s not found", id)
			}
			if !f.IsAvailable {
				return nil, nil, conflictError("%s is not available", f.Name)
			}
			items = append(items, entity.OrderLine{FoodID: id, Quantity: quantities[id], UnitPrice: f.Price})
		}
	}

	combos := make([]entity.OrderCombo, 0, len(parsedCombos))
	if len(parsedCombos) > 0 {
		found, err := s.repo.Menu.FindCombosByIDs(ctx, parsedCombos)
		if err != nil {
			return nil, nil, fmt.Errorf("load combos: %w", err)
		}
		byID := make(map[uuid.UUID]*entity.Combo, len(found))
		for _, c := range found {
			byID[c.ID] = c
		}
		for _, id := range parsedCombos {
			c, ok := byID[id]
			if !ok {
				return nil, nil, notFoundError("combo %s not found", id)
			}
			if !c.IsAvailable {
				return nil, nil, conflictError("%s is not available", c.Name)
			}
			combos = append(combos, entity.OrderCombo{ComboID: id, UnitPrice: c.Price})
		}
	}

	return items, combos, nil
}

// orderableReservation guards order creation and transitions on the parent reservation.
func orderableReservation(res *entity.Reservation) error {
	if res.Status.IsTerminal() {
		return conflictError("reservation %s is %s", res.Code, res.Status)
	}
	if res.IsPaid() {
		return conflictError("reservation %s is already paid", res.Code)
	}
	return nil
}

// checkoutClosed rejects changes to what a reservation owes while a gateway payment is open.
func checkoutClosed(res *entity.Reservation) error {
	if res.PaymentStatus == entity.PaymentStatusPending {
		return conflictError("reservation %s has a payment in progress", res.Code)
	}
	return nil
}
