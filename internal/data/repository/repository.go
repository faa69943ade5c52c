package repository

import (
	"context"
	"errors"

	"restaurant-ops/pkg/database"

	"go.uber.org/zap"
)

var (
	// ErrStaleVersion is returned when a versioned save lost a race with another writer.
	ErrStaleVersion = errors.New("record was modified concurrently")
	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrCouponUnavailable is returned when a conditional redeem matched no redeemable coupon.
	ErrCouponUnavailable = errors.New("coupon is not redeemable")
	// ErrNotDeletable is returned when a record is past the state where it may be removed.
	ErrNotDeletable = errors.New("record can no longer be deleted")
)

// Transactor scopes several repository calls into one atomic unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository struct {
	Tx          Transactor
	Table       TableRepository
	Reservation ReservationRepository
	TableOrder  TableOrderRepository
	Coupon      CouponRepository
	Menu        MenuRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Tx:          &pgTransactor{db: db},
		Table:       NewTableRepository(db, log),
		Reservation: NewReservationRepository(db, log),
		TableOrder:  NewTableOrderRepository(db, log),
		Coupon:      NewCouponRepository(db, log),
		Menu:        NewMenuRepository(db, log),
	}
}

type pgTransactor struct {
	db database.PgxIface
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithinTx(ctx, t.db, fn)
}
