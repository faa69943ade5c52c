package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/dto/response"
	"restaurant-ops/pkg/payos"
	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentGateway is the hosted checkout provider.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, req payos.PaymentRequest) (*payos.PaymentLink, error)
	VerifyWebhook(w *payos.Webhook) error
}

// WebhookResult tells whether a delivery changed anything. Duplicates and
// unknown codes are acknowledged with Applied=false.
type WebhookResult struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

type PaymentService interface {
	CreateIntent(ctx context.Context, actor utils.Identity, reservationCode string) (*response.PaymentIntentResponse, error)
	HandleWebhook(ctx context.Context, webhook *payos.Webhook) (*WebhookResult, error)
	PayCash(ctx context.Context, actor utils.Identity, reservationCode string) (*response.ReservationResponse, error)
	GetStatus(ctx context.Context, actor utils.Identity, reservationCode string) (*response.PaymentStatusResponse, error)
}

type paymentService struct {
	repo    *repository.Repository
	gateway PaymentGateway
	holds   tableHolds
	log     *zap.Logger
}

func newPaymentService(repo *repository.Repository, gateway PaymentGateway, holds tableHolds, log *zap.Logger) *paymentService {
	return &paymentService{
		repo:    repo,
		gateway: gateway,
		holds:   holds,
		log:     log.With(zap.String("service", "payment")),
	}
}

// paymentSnapshot is what an intent overwrites and a failed gateway call restores.
type paymentSnapshot struct {
	status  entity.PaymentStatus
	method  entity.PaymentMethod
	txCode  *int64
	amount  decimal.Decimal
	version int64
	orders  map[entity.PaymentStatus][]uuid.UUID
}

// chargeable selects the orders a reservation-level payment covers.
func chargeable(o *entity.TableOrder) bool {
	return o.Status == entity.OrderStatusCompleted && !o.IsPaid()
}

// coveredByIntent selects the orders an open gateway intent charged for.
func coveredByIntent(o *entity.TableOrder) bool {
	return o.PaymentStatus == entity.PaymentStatusPending
}

// chargeableOrders returns the orders a payment for res would cover and their total.
func (s *paymentService) chargeableOrders(ctx context.Context, res *entity.Reservation) ([]*entity.TableOrder, decimal.Decimal, error) {
	orders, err := s.repo.TableOrder.FindByReservationID(ctx, res.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	total := decimal.Zero
	var out []*entity.TableOrder
	for _, o := range orders {
		if chargeable(o) {
			out = append(out, o)
			total = total.Add(o.FinalPrice())
		}
	}
	if len(out) == 0 {
		return nil, decimal.Zero, conflictError("reservation %s has no completed unpaid orders", res.Code)
	}
	return out, total, nil
}

func (s *paymentService) CreateIntent(ctx context.Context, actor utils.Identity, code string) (*response.PaymentIntentResponse, error) {
	res, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrStaff(actor, res); err != nil {
		return nil, err
	}

	var (
		prev     paymentSnapshot
		amount   decimal.Decimal
		txCode   int64
		eligible []*entity.TableOrder
	)
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.Reservation.FindByID(ctx, res.ID)
		if err != nil {
			return err
		}
		if err := payable(cur); err != nil {
			return err
		}

		var total decimal.Decimal
		eligible, total, err = s.chargeableOrders(ctx, cur)
		if err != nil {
			return err
		}
		amount = cur.PayableAmount(total)
		if !amount.IsPositive() {
			return conflictError("nothing to pay for reservation %s", code)
		}

		prev = paymentSnapshot{
			status: cur.PaymentStatus,
			method: cur.PaymentMethod,
			txCode: cur.TransactionCode,
			amount: cur.AmountDue,
			orders: map[entity.PaymentStatus][]uuid.UUID{},
		}
		ids := make([]uuid.UUID, 0, len(eligible))
		for _, o := range eligible {
			prev.orders[o.PaymentStatus] = append(prev.orders[o.PaymentStatus], o.ID)
			ids = append(ids, o.ID)
		}

		txCode = utils.GenerateTransactionCode(cur.Code, time.Now())
		cur.PaymentStatus = entity.PaymentStatusPending
		cur.PaymentMethod = entity.PaymentMethodGateway
		cur.TransactionCode = &txCode
		cur.AmountDue = amount
		cur.UpdatedAt = time.Now()
		if err := s.repo.Reservation.Save(ctx, cur); err != nil {
			return err
		}
		prev.version = cur.Version

		// the webhook settles exactly these orders
		if _, err := s.repo.TableOrder.SetPaymentStatus(ctx, ids, entity.PaymentStatusPending); err != nil {
			return err
		}

		// settlement no longer depends on occupancy
		if err := s.holds.releaseHolds(ctx, cur); err != nil {
			return err
		}
		res = cur
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, "create payment intent")
	}

	items := make([]payos.Item, 0, len(eligible))
	for _, o := range eligible {
		items = append(items, payos.Item{Name: "Order " + o.ID.String()[:8], Quantity: 1, Price: o.FinalPrice().IntPart()})
	}
	link, err := s.gateway.CreatePaymentLink(ctx, payos.PaymentRequest{
		OrderCode:   txCode,
		Amount:      amount.IntPart(),
		Description: res.Code,
		Items:       items,
	})
	if err != nil {
		s.log.Error("Payment link creation failed, rolling back intent",
			zap.Error(err),
			zap.String("code", code),
			zap.Int64("tx_code", txCode),
		)
		if rbErr := s.rollbackIntent(ctx, res, prev); rbErr != nil {
			s.log.Error("Failed to roll back payment intent", zap.Error(rbErr), zap.String("code", code))
		}
		return nil, externalError(err, "payment gateway is unavailable")
	}

	s.log.Info("Payment intent created",
		zap.String("code", code),
		zap.Int64("tx_code", txCode),
		zap.String("amount", amount.String()),
	)

	return &response.PaymentIntentResponse{
		ReservationCode: res.Code,
		TransactionCode: txCode,
		Amount:          amount,
		CheckoutURL:     link.CheckoutURL,
		QRCode:          link.QRCode,
	}, nil
}

// rollbackIntent restores the payment fields and the table holds unless the
// reservation moved on in the meantime (e.g. a webhook already settled it).
func (s *paymentService) rollbackIntent(ctx context.Context, res *entity.Reservation, prev paymentSnapshot) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	return s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.Reservation.FindByID(ctx, res.ID)
		if err != nil {
			return err
		}
		if cur == nil || cur.Version != prev.version || cur.IsPaid() {
			s.log.Warn("Reservation changed since intent, skipping rollback", zap.String("code", res.Code))
			return nil
		}

		cur.PaymentStatus = prev.status
		cur.PaymentMethod = prev.method
		cur.TransactionCode = prev.txCode
		cur.AmountDue = prev.amount
		cur.UpdatedAt = time.Now()
		if err := s.repo.Reservation.Save(ctx, cur); err != nil {
			return err
		}
		for status, ids := range prev.orders {
			if _, err := s.repo.TableOrder.SetPaymentStatus(ctx, ids, status); err != nil {
				return err
			}
		}
		return s.holds.restoreHolds(ctx, cur)
	})
}

func (s *paymentService) HandleWebhook(ctx context.Context, webhook *payos.Webhook) (*WebhookResult, error) {
	txCode := webhook.Data.OrderCode
	log := s.log.With(zap.Int64("tx_code", txCode))

	if err := s.gateway.VerifyWebhook(webhook); err != nil {
		log.Warn("Webhook signature rejected", zap.Error(err))
		return &WebhookResult{Reason: "invalid signature"}, nil
	}

	res, err := s.repo.Reservation.FindByTransactionCode(ctx, txCode)
	if err != nil {
		log.Error("Failed to look up transaction", zap.Error(err))
		return nil, fmt.Errorf("find reservation by transaction code: %w", err)
	}
	if res == nil {
		log.Info("Webhook for unknown transaction code")
		return &WebhookResult{Reason: "unknown transaction code"}, nil
	}
	log = log.With(zap.String("code", res.Code))

	if !webhook.Paid() {
		applied, err := s.fail(ctx, res)
		if err != nil {
			log.Error("Failed to record payment failure", zap.Error(err))
			return nil, err
		}
		if !applied {
			log.Info("Failure webhook ignored, payment already settled", zap.String("payment_status", string(res.PaymentStatus)))
			return &WebhookResult{Reason: "payment already settled"}, nil
		}
		log.Info("Payment failed", zap.String("status", webhook.Data.Status), zap.String("desc", webhook.Desc))
		return &WebhookResult{Applied: true}, nil
	}

	if amount := decimal.NewFromInt(webhook.Data.Amount); res.AmountDue.IsPositive() && !amount.Equal(res.AmountDue) {
		log.Warn("Paid amount differs from amount due",
			zap.String("amount_due", res.AmountDue.String()),
			zap.Int64("paid", webhook.Data.Amount),
		)
	}

	applied, err := s.settle(ctx, res, entity.PaymentMethodGateway, coveredByIntent)
	if err != nil {
		log.Error("Failed to apply payment", zap.Error(err))
		return nil, err
	}
	if !applied {
		log.Info("Duplicate success webhook")
		return &WebhookResult{Reason: "already paid"}, nil
	}

	log.Info("Payment settled via gateway")
	return &WebhookResult{Applied: true}, nil
}

func (s *paymentService) PayCash(ctx context.Context, actor utils.Identity, code string) (*response.ReservationResponse, error) {
	if !actor.IsStaff() {
		return nil, permissionError("only staff can confirm cash payments")
	}

	res, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := payable(res); err != nil {
		return nil, err
	}

	var settled *entity.Reservation
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.Reservation.FindByID(ctx, res.ID)
		if err != nil {
			return err
		}
		if err := payable(cur); err != nil {
			return err
		}
		_, total, err := s.chargeableOrders(ctx, cur)
		if err != nil {
			return err
		}
		cur.AmountDue = cur.PayableAmount(total)
		cur.UpdatedAt = time.Now()
		if err := s.repo.Reservation.Save(ctx, cur); err != nil {
			return err
		}

		applied, err := s.settle(ctx, cur, entity.PaymentMethodCash, chargeable)
		if err != nil {
			return err
		}
		if !applied {
			return conflictError("reservation %s is already paid", code)
		}

		settled, err = s.repo.Reservation.FindByID(ctx, res.ID)
		return err
	})
	if err != nil {
		return nil, s.mapError(err, "cash payment")
	}

	s.log.Info("Reservation paid in cash", zap.String("code", code), zap.String("amount", settled.AmountDue.String()))
	return response.ReservationToResponse(settled), nil
}

// settle records a successful payment once: the reservation absorbs success,
// the orders selected by covers follow in bulk and its tables are released.
// Reports whether this call was the one that applied it.
func (s *paymentService) settle(ctx context.Context, res *entity.Reservation, method entity.PaymentMethod, covers func(*entity.TableOrder) bool) (bool, error) {
	settlement := entity.Settlement{Method: method, PaidAt: time.Now()}

	applied := false
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Reservation.MarkPaid(ctx, res.ID, settlement)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		applied = true

		if res.Status.IsTerminal() {
			s.log.Warn("Payment received for a closed reservation, keeping its status",
				zap.String("code", res.Code),
				zap.String("status", string(res.Status)),
			)
		}

		ids, err := s.orderIDs(ctx, res, covers)
		if err != nil {
			return err
		}
		n, err := s.repo.TableOrder.MarkPaidByIDs(ctx, ids, settlement)
		if err != nil {
			return err
		}
		s.log.Debug("Orders settled", zap.String("code", res.Code), zap.Int64("orders", n))

		return s.holds.releaseHolds(ctx, res)
	})
	return applied, err
}

// fail records a failed gateway payment unless the reservation already settled;
// the orders of the failed intent become chargeable again.
func (s *paymentService) fail(ctx context.Context, res *entity.Reservation) (bool, error) {
	applied := false
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Reservation.MarkPaymentFailed(ctx, res.ID)
		if err != nil || !ok {
			return err
		}
		applied = true

		ids, err := s.orderIDs(ctx, res, coveredByIntent)
		if err != nil {
			return err
		}
		_, err = s.repo.TableOrder.SetPaymentStatus(ctx, ids, entity.PaymentStatusFailed)
		return err
	})
	return applied, err
}

func (s *paymentService) orderIDs(ctx context.Context, res *entity.Reservation, keep func(*entity.TableOrder) bool) ([]uuid.UUID, error) {
	orders, err := s.repo.TableOrder.FindByReservationID(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, o := range orders {
		if keep(o) {
			ids = append(ids, o.ID)
		}
	}
	return ids, nil
}

func (s *paymentService) GetStatus(ctx context.Context, actor utils.Identity, code string) (*response.PaymentStatusResponse, error) {
	res, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrStaff(actor, res); err != nil {
		return nil, err
	}

	return &response.PaymentStatusResponse{
		ReservationCode: res.Code,
		Status:          res.PaymentStatus.Poll(),
		PaymentStatus:   res.PaymentStatus,
		PaymentMethod:   res.PaymentMethod,
		TransactionCode: res.TransactionCode,
	}, nil
}

func (s *paymentService) findByCode(ctx context.Context, code string) (*entity.Reservation, error) {
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

func (s *paymentService) mapError(err error, op string) error {
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, repository.ErrStaleVersion) {
		return wrapCause(conflictError("reservation was modified concurrently, retry"), err)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return wrapCause(conflictError("transaction code collision, retry"), err)
	}
	s.log.Error("Payment operation failed", zap.Error(err), zap.String("op", op))
	return fmt.Errorf("%s: %w", op, err)
}

// payable rejects reservations that can no longer take a payment.
func payable(res *entity.Reservation) error {
	if res.IsPaid() {
		return conflictError("reservation %s is already paid", res.Code)
	}
	if res.Status == entity.ReservationStatusCancelled || res.Status == entity.ReservationStatusNoShow {
		return conflictError("reservation %s is %s", res.Code, res.Status)
	}
	return nil
}
