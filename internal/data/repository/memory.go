package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"restaurant-ops/internal/data/entity"

	"github.com/google/uuid"
)

// MemoryStore keeps every entity in process memory behind the same repository
// interfaces as the Postgres implementation. Transactions are serialized and
// rolled back by restoring a snapshot.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	tables       map[uuid.UUID]*entity.Table
	holds        map[uuid.UUID][]uuid.UUID
	reservations map[uuid.UUID]*entity.Reservation
	orders       map[uuid.UUID]*entity.TableOrder
	coupons      map[uuid.UUID]*entity.Coupon
	ownerships   map[entity.CouponOwnership]struct{}
	foods        map[uuid.UUID]*entity.Food
	combos       map[uuid.UUID]*entity.Combo
}

type memTxKey struct{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:       make(map[uuid.UUID]*entity.Table),
		holds:        make(map[uuid.UUID][]uuid.UUID),
		reservations: make(map[uuid.UUID]*entity.Reservation),
		orders:       make(map[uuid.UUID]*entity.TableOrder),
		coupons:      make(map[uuid.UUID]*entity.Coupon),
		ownerships:   make(map[entity.CouponOwnership]struct{}),
		foods:        make(map[uuid.UUID]*entity.Food),
		combos:       make(map[uuid.UUID]*entity.Combo),
	}
}

// NewMemoryRepository exposes a MemoryStore as a Repository set.
func NewMemoryRepository(store *MemoryStore) *Repository {
	return &Repository{
		Tx:          store,
		Table:       memTables{store},
		Reservation: memReservations{store},
		TableOrder:  memOrders{store},
		Coupon:      memCoupons{store},
		Menu:        memMenu{store},
	}
}

func inMemTx(ctx context.Context) bool {
	_, ok := ctx.Value(memTxKey{}).(bool)
	return ok
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// write applies fn under the data lock; outside a transaction it also waits
// for any running transaction so a rollback cannot discard the write.
func (s *MemoryStore) write(ctx context.Context, fn func() error) error {
	if !inMemTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *MemoryStore) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

type memSnapshot struct {
	tables       map[uuid.UUID]*entity.Table
	holds        map[uuid.UUID][]uuid.UUID
	reservations map[uuid.UUID]*entity.Reservation
	orders       map[uuid.UUID]*entity.TableOrder
	coupons      map[uuid.UUID]*entity.Coupon
	ownerships   map[entity.CouponOwnership]struct{}
}

func (s *MemoryStore) snapshot() memSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := memSnapshot{
		tables:       make(map[uuid.UUID]*entity.Table, len(s.tables)),
		holds:        make(map[uuid.UUID][]uuid.UUID, len(s.holds)),
		reservations: make(map[uuid.UUID]*entity.Reservation, len(s.reservations)),
		orders:       make(map[uuid.UUID]*entity.TableOrder, len(s.orders)),
		coupons:      make(map[uuid.UUID]*entity.Coupon, len(s.coupons)),
		ownerships:   make(map[entity.CouponOwnership]struct{}, len(s.ownerships)),
	}
	for k, v := range s.tables {
		snap.tables[k] = cloneTable(v)
	}
	for k, v := range s.holds {
		snap.holds[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range s.reservations {
		snap.reservations[k] = cloneReservation(v)
	}
	for k, v := range s.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range s.coupons {
		c := *v
		snap.coupons[k] = &c
	}
	for k := range s.ownerships {
		snap.ownerships[k] = struct{}{}
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = snap.tables
	s.holds = snap.holds
	s.reservations = snap.reservations
	s.orders = snap.orders
	s.coupons = snap.coupons
	s.ownerships = snap.ownerships
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTable(t *entity.Table) *entity.Table {
	c := *t
	c.CurrentReservations = append([]uuid.UUID(nil), t.CurrentReservations...)
	return &c
}

func cloneReservation(r *entity.Reservation) *entity.Reservation {
	c := *r
	c.TableIDs = append([]uuid.UUID(nil), r.TableIDs...)
	c.ServantID = clonePtr(r.ServantID)
	c.TransactionCode = clonePtr(r.TransactionCode)
	c.OriginalAmount = clonePtr(r.OriginalAmount)
	c.CouponID = clonePtr(r.CouponID)
	c.PaidAt = clonePtr(r.PaidAt)
	return &c
}

func cloneOrder(o *entity.TableOrder) *entity.TableOrder {
	c := *o
	c.Items = append([]entity.OrderLine(nil), o.Items...)
	c.Combos = append([]entity.OrderCombo(nil), o.Combos...)
	c.ReservationID = clonePtr(o.ReservationID)
	c.OriginalPrice = clonePtr(o.OriginalPrice)
	c.CouponID = clonePtr(o.CouponID)
	c.CompletedAt = clonePtr(o.CompletedAt)
	c.PaidAt = clonePtr(o.PaidAt)
	return &c
}

// Seeding helpers for catalogue data that the core never creates itself.

func (s *MemoryStore) AddTable(t *entity.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = cloneTable(t)
}

func (s *MemoryStore) AddFood(f *entity.Food) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *f
	s.foods[f.ID] = &c
}

func (s *MemoryStore) AddCombo(cb *entity.Combo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cb
	s.combos[cb.ID] = &c
}

func (s *MemoryStore) AddCoupon(cp *entity.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cp
	s.coupons[cp.ID] = &c
}

func (s *MemoryStore) GrantCoupon(couponID, customerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerships[entity.CouponOwnership{CouponID: couponID, CustomerID: customerID}] = struct{}{}
}

// CouponQuantity returns the remaining quantity of a coupon, or -1 if unknown.
func (s *MemoryStore) CouponQuantity(id uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.coupons[id]; ok {
		return c.Quantity
	}
	return -1
}

// ---- tables ----

type memTables struct{ s *MemoryStore }

func (m memTables) withHolds(t *entity.Table) *entity.Table {
	c := cloneTable(t)
	c.CurrentReservations = append([]uuid.UUID(nil), m.s.holds[t.ID]...)
	return c
}

func (m memTables) Create(ctx context.Context, t *entity.Table) error {
	return m.s.write(ctx, func() error {
		for _, existing := range m.s.tables {
			if existing.Number == t.Number {
				return fmt.Errorf("table %d: %w", t.Number, ErrDuplicate)
			}
		}
		m.s.tables[t.ID] = cloneTable(t)
		return nil
	})
}

func (m memTables) FindByID(_ context.Context, id uuid.UUID) (*entity.Table, error) {
	var out *entity.Table
	m.s.read(func() {
		if t, ok := m.s.tables[id]; ok {
			out = m.withHolds(t)
		}
	})
	return out, nil
}

func (m memTables) FindByNumber(_ context.Context, number int) (*entity.Table, error) {
	var out *entity.Table
	m.s.read(func() {
		for _, t := range m.s.tables {
			if t.Number == number {
				out = m.withHolds(t)
				return
			}
		}
	})
	return out, nil
}

func (m memTables) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.Table, error) {
	var out []*entity.Table
	m.s.read(func() {
		for _, id := range ids {
			if t, ok := m.s.tables[id]; ok {
				out = append(out, m.withHolds(t))
			}
		}
	})
	sortTables(out)
	return out, nil
}

func (m memTables) FindAll(_ context.Context) ([]*entity.Table, error) {
	var out []*entity.Table
	m.s.read(func() {
		for _, t := range m.s.tables {
			out = append(out, m.withHolds(t))
		}
	})
	sortTables(out)
	return out, nil
}

func sortTables(tables []*entity.Table) {
	sort.Slice(tables, func(i, j int) bool { return tables[i].Number < tables[j].Number })
}

// LockForUpdate is a no-op: memory transactions are already serialized.
func (m memTables) LockForUpdate(context.Context, []uuid.UUID) error {
	return nil
}

func (m memTables) AddHold(ctx context.Context, reservationID uuid.UUID, tableIDs []uuid.UUID) error {
	return m.s.write(ctx, func() error {
		for _, tid := range tableIDs {
			held := false
			for _, id := range m.s.holds[tid] {
				if id == reservationID {
					held = true
					break
				}
			}
			if !held {
				m.s.holds[tid] = append(m.s.holds[tid], reservationID)
			}
		}
		return nil
	})
}

func (m memTables) ReleaseHold(ctx context.Context, reservationID uuid.UUID) error {
	return m.s.write(ctx, func() error {
		for tid, ids := range m.s.holds {
			kept := ids[:0:0]
			for _, id := range ids {
				if id != reservationID {
					kept = append(kept, id)
				}
			}
			m.s.holds[tid] = kept
		}
		return nil
	})
}

// ---- reservations ----

type memReservations struct{ s *MemoryStore }

func (m memReservations) uniqueLocked(res *entity.Reservation) error {
	for _, other := range m.s.reservations {
		if other.ID == res.ID {
			continue
		}
		if other.Code == res.Code {
			return fmt.Errorf("reservation %s: %w", res.Code, ErrDuplicate)
		}
		if res.TransactionCode != nil && other.TransactionCode != nil && *other.TransactionCode == *res.TransactionCode {
			return fmt.Errorf("reservation %s transaction code: %w", res.Code, ErrDuplicate)
		}
	}
	return nil
}

func (m memReservations) Create(ctx context.Context, res *entity.Reservation) error {
	return m.s.write(ctx, func() error {
		if err := m.uniqueLocked(res); err != nil {
			return err
		}
		if res.Version == 0 {
			res.Version = 1
		}
		m.s.reservations[res.ID] = cloneReservation(res)
		return nil
	})
}

func (m memReservations) FindByID(_ context.Context, id uuid.UUID) (*entity.Reservation, error) {
	var out *entity.Reservation
	m.s.read(func() {
		if r, ok := m.s.reservations[id]; ok {
			out = cloneReservation(r)
		}
	})
	return out, nil
}

func (m memReservations) findWhere(match func(*entity.Reservation) bool) *entity.Reservation {
	var out *entity.Reservation
	m.s.read(func() {
		for _, r := range m.s.reservations {
			if match(r) {
				out = cloneReservation(r)
				return
			}
		}
	})
	return out
}

func (m memReservations) FindByCode(_ context.Context, code string) (*entity.Reservation, error) {
	return m.findWhere(func(r *entity.Reservation) bool { return r.Code == code }), nil
}

func (m memReservations) FindByTransactionCode(_ context.Context, txCode int64) (*entity.Reservation, error) {
	return m.findWhere(func(r *entity.Reservation) bool {
		return r.TransactionCode != nil && *r.TransactionCode == txCode
	}), nil
}

func (m memReservations) Save(ctx context.Context, res *entity.Reservation) error {
	return m.s.write(ctx, func() error {
		stored, ok := m.s.reservations[res.ID]
		if !ok || stored.Version != res.Version {
			return fmt.Errorf("reservation %s at version %d: %w", res.Code, res.Version, ErrStaleVersion)
		}
		if err := m.uniqueLocked(res); err != nil {
			return err
		}
		res.Version++
		m.s.reservations[res.ID] = cloneReservation(res)
		return nil
	})
}

func (m memReservations) FindActiveByTableIDs(_ context.Context, tableIDs []uuid.UUID, excludeID *uuid.UUID) ([]*entity.Reservation, error) {
	var out []*entity.Reservation
	m.s.read(func() {
		for _, r := range m.s.reservations {
			if r.Status == entity.ReservationStatusCancelled {
				continue
			}
			if excludeID != nil && r.ID == *excludeID {
				continue
			}
			for _, tid := range tableIDs {
				if r.UsesTable(tid) {
					out = append(out, cloneReservation(r))
					break
				}
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m memReservations) MarkPaid(ctx context.Context, id uuid.UUID, st entity.Settlement) (bool, error) {
	applied := false
	err := m.s.write(ctx, func() error {
		r, ok := m.s.reservations[id]
		if !ok || r.PaymentStatus == entity.PaymentStatusSuccess {
			return nil
		}
		paidAt := st.PaidAt
		r.PaymentStatus = entity.PaymentStatusSuccess
		r.PaymentMethod = st.Method
		r.PaidAt = &paidAt
		if !r.Status.IsTerminal() {
			r.Status = entity.ReservationStatusCompleted
		}
		r.UpdatedAt = paidAt
		r.Version++
		applied = true
		return nil
	})
	return applied, err
}

func (m memReservations) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	applied := false
	err := m.s.write(ctx, func() error {
		r, ok := m.s.reservations[id]
		if !ok || r.PaymentStatus == entity.PaymentStatusSuccess || r.PaymentStatus == entity.PaymentStatusFailed {
			return nil
		}
		r.PaymentStatus = entity.PaymentStatusFailed
		r.UpdatedAt = time.Now()
		r.Version++
		applied = true
		return nil
	})
	return applied, err
}

// ---- table orders ----

type memOrders struct{ s *MemoryStore }

func (m memOrders) Create(ctx context.Context, o *entity.TableOrder) error {
	return m.s.write(ctx, func() error {
		if _, exists := m.s.orders[o.ID]; exists {
			return fmt.Errorf("table order %s: %w", o.ID, ErrDuplicate)
		}
		if o.Version == 0 {
			o.Version = 1
		}
		m.s.orders[o.ID] = cloneOrder(o)
		return nil
	})
}

func (m memOrders) FindByID(_ context.Context, id uuid.UUID) (*entity.TableOrder, error) {
	var out *entity.TableOrder
	m.s.read(func() {
		if o, ok := m.s.orders[id]; ok {
			out = cloneOrder(o)
		}
	})
	return out, nil
}

func (m memOrders) FindByReservationID(_ context.Context, reservationID uuid.UUID) ([]*entity.TableOrder, error) {
	var out []*entity.TableOrder
	m.s.read(func() {
		for _, o := range m.s.orders {
			if o.ReservationID != nil && *o.ReservationID == reservationID {
				out = append(out, cloneOrder(o))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m memOrders) Save(ctx context.Context, o *entity.TableOrder) error {
	return m.s.write(ctx, func() error {
		stored, ok := m.s.orders[o.ID]
		if !ok || stored.Version != o.Version {
			return fmt.Errorf("table order %s at version %d: %w", o.ID, o.Version, ErrStaleVersion)
		}
		o.Version++
		m.s.orders[o.ID] = cloneOrder(o)
		return nil
	})
}

func (m memOrders) Delete(ctx context.Context, id uuid.UUID) error {
	return m.s.write(ctx, func() error {
		o, ok := m.s.orders[id]
		if !ok || o.Status != entity.OrderStatusPending {
			return fmt.Errorf("table order %s: %w", id, ErrNotDeletable)
		}
		delete(m.s.orders, id)
		return nil
	})
}

func settleOrder(o *entity.TableOrder, st entity.Settlement) {
	paidAt := st.PaidAt
	o.PaymentStatus = entity.PaymentStatusSuccess
	o.PaymentMethod = st.Method
	o.PaidAt = &paidAt
	o.UpdatedAt = paidAt
	o.Version++
}

func (m memOrders) MarkPaid(ctx context.Context, id uuid.UUID, st entity.Settlement) (bool, error) {
	applied := false
	err := m.s.write(ctx, func() error {
		o, ok := m.s.orders[id]
		if !ok || o.IsPaid() {
			return nil
		}
		settleOrder(o, st)
		applied = true
		return nil
	})
	return applied, err
}

func (m memOrders) MarkPaidByIDs(ctx context.Context, ids []uuid.UUID, st entity.Settlement) (int64, error) {
	var n int64
	err := m.s.write(ctx, func() error {
		for _, id := range ids {
			o, ok := m.s.orders[id]
			if !ok || o.IsPaid() {
				continue
			}
			settleOrder(o, st)
			n++
		}
		return nil
	})
	return n, err
}

func (m memOrders) SetPaymentStatus(ctx context.Context, ids []uuid.UUID, status entity.PaymentStatus) (int64, error) {
	var n int64
	err := m.s.write(ctx, func() error {
		now := time.Now()
		for _, id := range ids {
			o, ok := m.s.orders[id]
			if !ok || o.IsPaid() {
				continue
			}
			o.PaymentStatus = status
			o.UpdatedAt = now
			o.Version++
			n++
		}
		return nil
	})
	return n, err
}

// ---- coupons ----

type memCoupons struct{ s *MemoryStore }

func (m memCoupons) Create(ctx context.Context, c *entity.Coupon) error {
	return m.s.write(ctx, func() error {
		for _, existing := range m.s.coupons {
			if existing.Code == c.Code {
				return fmt.Errorf("coupon %s: %w", c.Code, ErrDuplicate)
			}
		}
		cp := *c
		m.s.coupons[c.ID] = &cp
		return nil
	})
}

func (m memCoupons) FindByCode(_ context.Context, code string) (*entity.Coupon, error) {
	var out *entity.Coupon
	m.s.read(func() {
		for _, c := range m.s.coupons {
			if c.Code == code {
				cp := *c
				out = &cp
				return
			}
		}
	})
	return out, nil
}

func (m memCoupons) Redeem(ctx context.Context, couponID uuid.UUID, now time.Time) error {
	return m.s.write(ctx, func() error {
		c, ok := m.s.coupons[couponID]
		if !ok || c.RedeemableAt(now) != nil {
			return fmt.Errorf("coupon %s: %w", couponID, ErrCouponUnavailable)
		}
		c.Quantity--
		c.UpdatedAt = now
		return nil
	})
}

func (m memCoupons) GrantOwnership(ctx context.Context, couponID, customerID uuid.UUID) error {
	return m.s.write(ctx, func() error {
		m.s.ownerships[entity.CouponOwnership{CouponID: couponID, CustomerID: customerID}] = struct{}{}
		return nil
	})
}

func (m memCoupons) IsOwnedBy(_ context.Context, couponID, customerID uuid.UUID) (bool, error) {
	owned := false
	m.s.read(func() {
		_, owned = m.s.ownerships[entity.CouponOwnership{CouponID: couponID, CustomerID: customerID}]
	})
	return owned, nil
}

// ---- menu ----

type memMenu struct{ s *MemoryStore }

func (m memMenu) CreateFood(ctx context.Context, f *entity.Food) error {
	return m.s.write(ctx, func() error {
		c := *f
		m.s.foods[f.ID] = &c
		return nil
	})
}

func (m memMenu) CreateCombo(ctx context.Context, cb *entity.Combo) error {
	return m.s.write(ctx, func() error {
		c := *cb
		m.s.combos[cb.ID] = &c
		return nil
	})
}

func (m memMenu) FindFoodsByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.Food, error) {
	var out []*entity.Food
	m.s.read(func() {
		for _, id := range ids {
			if f, ok := m.s.foods[id]; ok {
				c := *f
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

func (m memMenu) FindCombosByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.Combo, error) {
	var out []*entity.Combo
	m.s.read(func() {
		for _, id := range ids {
			if cb, ok := m.s.combos[id]; ok {
				c := *cb
				out = append(out, &c)
			}
		}
	})
	return out, nil
}
