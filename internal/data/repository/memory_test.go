package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-ops/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReservation(code string, tableIDs ...uuid.UUID) *entity.Reservation {
	now := time.Now()
	return &entity.Reservation{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Code:          code,
		TableIDs:      tableIDs,
		CustomerID:    uuid.New(),
		StartTime:     now,
		EndTime:       now.Add(time.Hour),
		PartySize:     2,
		Status:        entity.ReservationStatusPending,
		PaymentStatus: entity.PaymentStatusUnpaid,
	}
}

func newTable(number int) *entity.Table {
	now := time.Now()
	return &entity.Table{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Number:   number,
		Capacity: 4,
		IsOpen:   true,
	}
}

func TestMemoryTxRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryRepository(store)
	table := newTable(1)
	store.AddTable(table)
	ctx := context.Background()

	boom := errors.New("boom")
	res := newReservation("ROLLBACK", table.ID)
	err := repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.Reservation.Create(ctx, res))
		require.NoError(t, repo.Table.AddHold(ctx, res.ID, []uuid.UUID{table.ID}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Reservation.FindByCode(ctx, "ROLLBACK")
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := repo.Table.FindByID(ctx, table.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.CurrentReservations)
}

func TestMemoryNestedTxJoinsOuter(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryRepository(store)
	ctx := context.Background()

	err := repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return repo.Reservation.Create(ctx, newReservation("NESTED01"))
		})
	})
	require.NoError(t, err)

	got, err := repo.Reservation.FindByCode(ctx, "NESTED01")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMemoryVersionedSave(t *testing.T) {
	repo := NewMemoryRepository(NewMemoryStore())
	ctx := context.Background()

	res := newReservation("VERSION1")
	require.NoError(t, repo.Reservation.Create(ctx, res))

	a, err := repo.Reservation.FindByID(ctx, res.ID)
	require.NoError(t, err)
	b, err := repo.Reservation.FindByID(ctx, res.ID)
	require.NoError(t, err)

	a.Note = "window seat"
	require.NoError(t, repo.Reservation.Save(ctx, a))
	assert.Equal(t, res.Version+1, a.Version)

	b.Note = "terrace"
	assert.ErrorIs(t, repo.Reservation.Save(ctx, b), ErrStaleVersion)

	got, err := repo.Reservation.FindByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "window seat", got.Note)
}

func TestMemoryReservationCodeIsUnique(t *testing.T) {
	repo := NewMemoryRepository(NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, repo.Reservation.Create(ctx, newReservation("SAMECODE")))
	assert.ErrorIs(t, repo.Reservation.Create(ctx, newReservation("SAMECODE")), ErrDuplicate)
}

func TestMemoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository(NewMemoryStore())
	ctx := context.Background()

	res := newReservation("COPYCOPY", uuid.New())
	require.NoError(t, repo.Reservation.Create(ctx, res))

	got, err := repo.Reservation.FindByID(ctx, res.ID)
	require.NoError(t, err)
	got.Status = entity.ReservationStatusCancelled
	got.TableIDs[0] = uuid.Nil

	again, err := repo.Reservation.FindByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationStatusPending, again.Status)
	assert.NotEqual(t, uuid.Nil, again.TableIDs[0])
}

func TestMemoryMarkPaidIsAbsorbing(t *testing.T) {
	repo := NewMemoryRepository(NewMemoryStore())
	ctx := context.Background()

	res := newReservation("PAIDONCE")
	require.NoError(t, repo.Reservation.Create(ctx, res))

	st := entity.Settlement{Method: entity.PaymentMethodGateway, PaidAt: time.Now()}
	applied, err := repo.Reservation.MarkPaid(ctx, res.ID, st)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Reservation.MarkPaid(ctx, res.ID, st)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.Reservation.MarkPaymentFailed(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.Reservation.FindByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusSuccess, got.PaymentStatus)
}

func TestMemoryHoldsKeepOrderAndRelease(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryRepository(store)
	table := newTable(3)
	store.AddTable(table)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	require.NoError(t, repo.Table.AddHold(ctx, first, []uuid.UUID{table.ID}))
	require.NoError(t, repo.Table.AddHold(ctx, second, []uuid.UUID{table.ID}))
	require.NoError(t, repo.Table.AddHold(ctx, first, []uuid.UUID{table.ID}))

	got, err := repo.Table.FindByNumber(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, got.CurrentReservations)

	require.NoError(t, repo.Table.ReleaseHold(ctx, first))
	got, err = repo.Table.FindByID(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second}, got.CurrentReservations)
}

func TestMemoryCouponRedeem(t *testing.T) {
	store := NewMemoryStore()
	repo := NewMemoryRepository(store)
	now := time.Now()
	coupon := &entity.Coupon{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Code:          "ONEONLY",
		DiscountType:  entity.DiscountFixed,
		DiscountValue: decimal.NewFromInt(10_000),
		Quantity:      1,
		ValidFrom:     now.Add(-time.Hour),
		ValidTo:       now.Add(time.Hour),
		IsActive:      true,
	}
	store.AddCoupon(coupon)
	ctx := context.Background()

	require.NoError(t, repo.Coupon.Redeem(ctx, coupon.ID, now))
	assert.ErrorIs(t, repo.Coupon.Redeem(ctx, coupon.ID, now), ErrCouponUnavailable)
	assert.Equal(t, 0, store.CouponQuantity(coupon.ID))

	owned, err := repo.Coupon.IsOwnedBy(ctx, coupon.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestMemoryOrderPaymentFanOutTouchesOnlyGivenOrders(t *testing.T) {
	repo := NewMemoryRepository(NewMemoryStore())
	ctx := context.Background()
	reservationID := uuid.New()

	newOrder := func(status entity.PaymentStatus) *entity.TableOrder {
		now := time.Now()
		o := &entity.TableOrder{
			Base:           entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			TableID:        uuid.New(),
			ReservationID:  &reservationID,
			Status:         entity.OrderStatusCompleted,
			PaymentStatus:  status,
			DiscountAmount: decimal.Zero,
		}
		require.NoError(t, repo.TableOrder.Create(ctx, o))
		return o
	}
	charged := newOrder(entity.PaymentStatusUnpaid)
	settled := newOrder(entity.PaymentStatusSuccess)
	untouched := newOrder(entity.PaymentStatusUnpaid)

	n, err := repo.TableOrder.SetPaymentStatus(ctx, []uuid.UUID{charged.ID, settled.ID}, entity.PaymentStatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "settled orders keep success")

	n, err = repo.TableOrder.MarkPaidByIDs(ctx, []uuid.UUID{charged.ID, settled.ID}, entity.Settlement{
		Method: entity.PaymentMethodGateway,
		PaidAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.TableOrder.FindByID(ctx, charged.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusSuccess, got.PaymentStatus)
	assert.Equal(t, entity.PaymentMethodGateway, got.PaymentMethod)

	got, err = repo.TableOrder.FindByID(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusUnpaid, got.PaymentStatus)

	n, err = repo.TableOrder.MarkPaidByIDs(ctx, nil, entity.Settlement{PaidAt: time.Now()})
	require.NoError(t, err)
	assert.Zero(t, n)
}
