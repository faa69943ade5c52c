package repository

import (
	"context"
	"fmt"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TableOrderRepository interface {
	Create(ctx context.Context, order *entity.TableOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TableOrder, error)
	FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*entity.TableOrder, error)
	Save(ctx context.Context, order *entity.TableOrder) error
	// Delete removes a pending order only; anything further along is a financial record.
	Delete(ctx context.Context, id uuid.UUID) error

	// MarkPaid settles one order unless it is already settled.
	MarkPaid(ctx context.Context, id uuid.UUID, settlement entity.Settlement) (bool, error)
	// MarkPaidByIDs fans a settlement out to the given orders, skipping settled ones.
	// Returns how many rows changed.
	MarkPaidByIDs(ctx context.Context, ids []uuid.UUID, settlement entity.Settlement) (int64, error)
	// SetPaymentStatus moves the given unsettled orders to status; settled orders are left alone.
	SetPaymentStatus(ctx context.Context, ids []uuid.UUID, status entity.PaymentStatus) (int64, error)
}

type tableOrderRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTableOrderRepository(db database.PgxIface, log *zap.Logger) TableOrderRepository {
	return &tableOrderRepository{
		db:  db,
		log: log.With(zap.String("repository", "table_order")),
	}
}

const tableOrderColumns = `id, table_id, reservation_id, items, combos, status, payment_status, payment_method,
	total_price, original_price, discount_amount, coupon_id, created_by, completed_at, paid_at, version,
	created_at, updated_at`

func scanTableOrder(row pgx.Row) (*entity.TableOrder, error) {
	var o entity.TableOrder
	err := row.Scan(
		&o.ID,
		&o.TableID,
		&o.ReservationID,
		&o.Items,
		&o.Combos,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.TotalPrice,
		&o.OriginalPrice,
		&o.DiscountAmount,
		&o.CouponID,
		&o.CreatedBy,
		&o.CompletedAt,
		&o.PaidAt,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *tableOrderRepository) Create(ctx context.Context, o *entity.TableOrder) error {
	query := `
		INSERT INTO table_orders (` + tableOrderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	if o.Version == 0 {
		o.Version = 1
	}
	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		o.ID,
		o.TableID,
		o.ReservationID,
		o.Items,
		o.Combos,
		o.Status,
		o.PaymentStatus,
		o.PaymentMethod,
		o.TotalPrice,
		o.OriginalPrice,
		o.DiscountAmount,
		o.CouponID,
		o.CreatedBy,
		o.CompletedAt,
		o.PaidAt,
		o.Version,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create table order",
			zap.Error(err),
			zap.String("order_id", o.ID.String()),
			zap.String("table_id", o.TableID.String()),
		)
		return fmt.Errorf("create table order %s: %w", o.ID, err)
	}

	return nil
}

func (r *tableOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.TableOrder, error) {
	query := `SELECT ` + tableOrderColumns + ` FROM table_orders WHERE id = $1`

	o, err := scanTableOrder(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find table order by ID", zap.Error(err), zap.String("order_id", id.String()))
		return nil, fmt.Errorf("find table order by ID %s: %w", id, err)
	}

	return o, nil
}

func (r *tableOrderRepository) FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*entity.TableOrder, error) {
	query := `SELECT ` + tableOrderColumns + ` FROM table_orders WHERE reservation_id = $1 ORDER BY created_at, id`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, reservationID)
	if err != nil {
		r.log.Error("Failed to find table orders by reservation",
			zap.Error(err),
			zap.String("reservation_id", reservationID.String()),
		)
		return nil, fmt.Errorf("find table orders by reservation %s: %w", reservationID, err)
	}
	defer rows.Close()

	var orders []*entity.TableOrder
	for rows.Next() {
		o, err := scanTableOrder(rows)
		if err != nil {
			r.log.Error("Failed to scan table order row", zap.Error(err))
			return nil, fmt.Errorf("scan table order row: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

func (r *tableOrderRepository) Save(ctx context.Context, o *entity.TableOrder) error {
	query := `
		UPDATE table_orders
		SET items = $3, combos = $4, status = $5, payment_status = $6, payment_method = $7,
		    total_price = $8, original_price = $9, discount_amount = $10, coupon_id = $11,
		    completed_at = $12, paid_at = $13, updated_at = $14, version = version + 1
		WHERE id = $1 AND version = $2
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		o.ID,
		o.Version,
		o.Items,
		o.Combos,
		o.Status,
		o.PaymentStatus,
		o.PaymentMethod,
		o.TotalPrice,
		o.OriginalPrice,
		o.DiscountAmount,
		o.CouponID,
		o.CompletedAt,
		o.PaidAt,
		o.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to save table order", zap.Error(err), zap.String("order_id", o.ID.String()))
		return fmt.Errorf("save table order %s: %w", o.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("table order %s at version %d: %w", o.ID, o.Version, ErrStaleVersion)
	}
	o.Version++

	return nil
}

func (r *tableOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM table_orders WHERE id = $1 AND status = 'pending'`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete table order", zap.Error(err), zap.String("order_id", id.String()))
		return fmt.Errorf("delete table order %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("table order %s: %w", id, ErrNotDeletable)
	}

	r.log.Info("Table order deleted", zap.String("order_id", id.String()))
	return nil
}

func (r *tableOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, settlement entity.Settlement) (bool, error) {
	query := `
		UPDATE table_orders
		SET payment_status = 'success', payment_method = $2, paid_at = $3, updated_at = $3, version = version + 1
		WHERE id = $1 AND payment_status <> 'success'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, settlement.Method, settlement.PaidAt)
	if err != nil {
		r.log.Error("Failed to mark table order paid", zap.Error(err), zap.String("order_id", id.String()))
		return false, fmt.Errorf("mark table order %s paid: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *tableOrderRepository) MarkPaidByIDs(ctx context.Context, ids []uuid.UUID, settlement entity.Settlement) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE table_orders
		SET payment_status = 'success', payment_method = $2, paid_at = $3, updated_at = $3, version = version + 1
		WHERE id = ANY($1) AND payment_status <> 'success'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, ids, settlement.Method, settlement.PaidAt)
	if err != nil {
		r.log.Error("Failed to fan out payment to table orders", zap.Error(err), zap.Int("orders", len(ids)))
		return 0, fmt.Errorf("mark %d table orders paid: %w", len(ids), err)
	}

	return result.RowsAffected(), nil
}

func (r *tableOrderRepository) SetPaymentStatus(ctx context.Context, ids []uuid.UUID, status entity.PaymentStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE table_orders
		SET payment_status = $2, updated_at = NOW(), version = version + 1
		WHERE id = ANY($1) AND payment_status <> 'success'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, ids, status)
	if err != nil {
		r.log.Error("Failed to update table order payment status",
			zap.Error(err),
			zap.String("payment_status", string(status)),
			zap.Int("orders", len(ids)),
		)
		return 0, fmt.Errorf("set payment status of %d table orders: %w", len(ids), err)
	}

	return result.RowsAffected(), nil
}
