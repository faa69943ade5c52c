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

type ReservationRepository interface {
	Create(ctx context.Context, reservation *entity.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindByCode(ctx context.Context, code string) (*entity.Reservation, error)
	FindByTransactionCode(ctx context.Context, txCode int64) (*entity.Reservation, error)

	// Save persists every mutable field when the stored version still matches,
	// then bumps reservation.Version. Returns ErrStaleVersion otherwise.
	Save(ctx context.Context, reservation *entity.Reservation) error

	// Business queries
	FindActiveByTableIDs(ctx context.Context, tableIDs []uuid.UUID, excludeID *uuid.UUID) ([]*entity.Reservation, error)

	// MarkPaid records a successful payment unless one is already recorded,
	// completing the reservation when it is still non-terminal. Reports whether it applied.
	MarkPaid(ctx context.Context, id uuid.UUID, settlement entity.Settlement) (bool, error)
	// MarkPaymentFailed records a failed attempt unless the payment already succeeded.
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error)
}

type reservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationRepository(db database.PgxIface, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

const reservationColumns = `r.id, r.code, r.customer_id, r.servant_id, r.start_time, r.end_time, r.party_size,
	r.status, r.payment_status, r.payment_method, r.transaction_code, r.amount_due, r.original_amount,
	r.discount_amount, r.coupon_id, r.paid_at, r.note, r.version, r.created_at, r.updated_at,
	COALESCE(ARRAY(SELECT rt.table_id FROM reservation_tables rt WHERE rt.reservation_id = r.id ORDER BY rt.table_id), '{}')`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	err := row.Scan(
		&res.ID,
		&res.Code,
		&res.CustomerID,
		&res.ServantID,
		&res.StartTime,
		&res.EndTime,
		&res.PartySize,
		&res.Status,
		&res.PaymentStatus,
		&res.PaymentMethod,
		&res.TransactionCode,
		&res.AmountDue,
		&res.OriginalAmount,
		&res.DiscountAmount,
		&res.CouponID,
		&res.PaidAt,
		&res.Note,
		&res.Version,
		&res.CreatedAt,
		&res.UpdatedAt,
		&res.TableIDs,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) Create(ctx context.Context, res *entity.Reservation) error {
	query := `
		INSERT INTO reservations (id, code, customer_id, servant_id, start_time, end_time, party_size,
			status, payment_status, payment_method, transaction_code, amount_due, original_amount,
			discount_amount, coupon_id, paid_at, note, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	conn := database.Conn(ctx, r.db)
	if res.Version == 0 {
		res.Version = 1
	}
	_, err := conn.Exec(ctx, query,
		res.ID,
		res.Code,
		res.CustomerID,
		res.ServantID,
		res.StartTime,
		res.EndTime,
		res.PartySize,
		res.Status,
		res.PaymentStatus,
		res.PaymentMethod,
		res.TransactionCode,
		res.AmountDue,
		res.OriginalAmount,
		res.DiscountAmount,
		res.CouponID,
		res.PaidAt,
		res.Note,
		res.Version,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("reservation %s: %w", res.Code, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("code", res.Code),
			zap.String("customer_id", res.CustomerID.String()),
		)
		return fmt.Errorf("create reservation %s: %w", res.Code, err)
	}

	if err := r.replaceTables(ctx, conn, res); err != nil {
		return err
	}

	return nil
}

func (r *reservationRepository) replaceTables(ctx context.Context, conn database.Executor, res *entity.Reservation) error {
	if _, err := conn.Exec(ctx, `DELETE FROM reservation_tables WHERE reservation_id = $1`, res.ID); err != nil {
		return fmt.Errorf("clear tables of reservation %s: %w", res.Code, err)
	}

	query := `INSERT INTO reservation_tables (reservation_id, table_id) SELECT $1, unnest($2::uuid[])`
	if _, err := conn.Exec(ctx, query, res.ID, res.TableIDs); err != nil {
		r.log.Error("Failed to link reservation tables", zap.Error(err), zap.String("code", res.Code))
		return fmt.Errorf("link tables of reservation %s: %w", res.Code, err)
	}

	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	return r.findOne(ctx, `r.id = $1`, id)
}

func (r *reservationRepository) FindByCode(ctx context.Context, code string) (*entity.Reservation, error) {
	return r.findOne(ctx, `r.code = $1`, code)
}

func (r *reservationRepository) FindByTransactionCode(ctx context.Context, txCode int64) (*entity.Reservation, error) {
	return r.findOne(ctx, `r.transaction_code = $1`, txCode)
}

func (r *reservationRepository) findOne(ctx context.Context, where string, arg any) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE ` + where

	res, err := scanReservation(database.Conn(ctx, r.db).QueryRow(ctx, query, arg))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation", zap.Error(err), zap.String("where", where), zap.Any("arg", arg))
		return nil, fmt.Errorf("find reservation where %s: %w", where, err)
	}

	return res, nil
}

func (r *reservationRepository) FindActiveByTableIDs(ctx context.Context, tableIDs []uuid.UUID, excludeID *uuid.UUID) ([]*entity.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations r
		WHERE r.status <> 'cancelled'
		  AND ($2::uuid IS NULL OR r.id <> $2)
		  AND EXISTS (
			SELECT 1 FROM reservation_tables rt
			WHERE rt.reservation_id = r.id AND rt.table_id = ANY($1)
		  )
		ORDER BY r.start_time
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, tableIDs, excludeID)
	if err != nil {
		r.log.Error("Failed to find reservations by tables", zap.Error(err))
		return nil, fmt.Errorf("find reservations by tables: %w", err)
	}
	defer rows.Close()

	var reservations []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			r.log.Error("Failed to scan reservation row", zap.Error(err))
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}

func (r *reservationRepository) Save(ctx context.Context, res *entity.Reservation) error {
	query := `
		UPDATE reservations
		SET servant_id = $3, start_time = $4, end_time = $5, party_size = $6, status = $7,
		    payment_status = $8, payment_method = $9, transaction_code = $10, amount_due = $11,
		    original_amount = $12, discount_amount = $13, coupon_id = $14, paid_at = $15, note = $16,
		    updated_at = $17, version = version + 1
		WHERE id = $1 AND version = $2
	`

	conn := database.Conn(ctx, r.db)
	result, err := conn.Exec(ctx, query,
		res.ID,
		res.Version,
		res.ServantID,
		res.StartTime,
		res.EndTime,
		res.PartySize,
		res.Status,
		res.PaymentStatus,
		res.PaymentMethod,
		res.TransactionCode,
		res.AmountDue,
		res.OriginalAmount,
		res.DiscountAmount,
		res.CouponID,
		res.PaidAt,
		res.Note,
		res.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("reservation %s: %w", res.Code, ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to save reservation", zap.Error(err), zap.String("code", res.Code))
		return fmt.Errorf("save reservation %s: %w", res.Code, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s at version %d: %w", res.Code, res.Version, ErrStaleVersion)
	}
	res.Version++

	return r.replaceTables(ctx, conn, res)
}

func (r *reservationRepository) MarkPaid(ctx context.Context, id uuid.UUID, settlement entity.Settlement) (bool, error) {
	query := `
		UPDATE reservations
		SET payment_status = 'success',
		    payment_method = $2,
		    paid_at = $3,
		    status = CASE WHEN status IN ('pending', 'confirmed', 'served') THEN 'completed' ELSE status END,
		    updated_at = $3,
		    version = version + 1
		WHERE id = $1 AND payment_status <> 'success'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, settlement.Method, settlement.PaidAt)
	if err != nil {
		r.log.Error("Failed to mark reservation paid", zap.Error(err), zap.String("reservation_id", id.String()))
		return false, fmt.Errorf("mark reservation %s paid: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *reservationRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE reservations
		SET payment_status = 'failed', updated_at = NOW(), version = version + 1
		WHERE id = $1 AND payment_status NOT IN ('success', 'failed')
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark reservation payment failed", zap.Error(err), zap.String("reservation_id", id.String()))
		return false, fmt.Errorf("mark reservation %s payment failed: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}
