package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/dto/request"
	"restaurant-ops/internal/dto/response"
	"restaurant-ops/pkg/locker"
	"restaurant-ops/pkg/notifier"
	"restaurant-ops/pkg/payos"
	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifier.ReservationConfirmed
}

func (n *recordingNotifier) ReservationConfirmed(_ context.Context, event notifier.ReservationConfirmed) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) Events() []notifier.ReservationConfirmed {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.ReservationConfirmed(nil), n.events...)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePaymentLink(ctx context.Context, req payos.PaymentRequest) (*payos.PaymentLink, error) {
	args := m.Called(ctx, req)
	link, _ := args.Get(0).(*payos.PaymentLink)
	return link, args.Error(1)
}

func (m *mockGateway) VerifyWebhook(w *payos.Webhook) error {
	return m.Called(w).Error(0)
}

type testEnv struct {
	store    *repository.MemoryStore
	repo     *repository.Repository
	svc      *Service
	notes    *recordingNotifier
	gateway  *mockGateway
	customer utils.Identity
	servant  utils.Identity
	admin    utils.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	repo := repository.NewMemoryRepository(store)
	notes := &recordingNotifier{}
	gateway := &mockGateway{}

	config := &utils.Config{Booking: utils.BookingConfig{
		TooSoonBuffer:   2 * time.Hour,
		TooCloseCutoff:  30 * time.Minute,
		TurnoverBuffer:  2 * time.Hour,
		DefaultDuration: 2 * time.Hour,
	}}
	svc := NewService(repo, Deps{
		Locker:   locker.NewLocalLocker(2 * time.Second),
		Notifier: notes,
		Gateway:  gateway,
	}, config, zap.NewNop())

	return &testEnv{
		store:    store,
		repo:     repo,
		svc:      svc,
		notes:    notes,
		gateway:  gateway,
		customer: utils.Identity{UserID: uuid.New(), Role: utils.RoleCustomer},
		servant:  utils.Identity{UserID: uuid.New(), Role: utils.RoleServant},
		admin:    utils.Identity{UserID: uuid.New(), Role: utils.RoleAdmin},
	}
}

// at returns a wall-clock time on a fixed future evening.
func at(hour, minute int) time.Time {
	return time.Date(2030, 6, 1, hour, minute, 0, 0, time.UTC)
}

func newBase() entity.Base {
	now := time.Now()
	return entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (e *testEnv) addTable(number, capacity int) *entity.Table {
	t := &entity.Table{Base: newBase(), Number: number, Capacity: capacity, IsOpen: true}
	e.store.AddTable(t)
	return t
}

func (e *testEnv) addFood(name string, price int64) *entity.Food {
	f := &entity.Food{Base: newBase(), Name: name, Price: decimal.NewFromInt(price), IsAvailable: true}
	e.store.AddFood(f)
	return f
}

func (e *testEnv) book(t *testing.T, actor utils.Identity, table *entity.Table, start, end time.Time) *response.ReservationResponse {
	t.Helper()
	res, err := e.svc.Reservation.CreateReservation(context.Background(), actor, &request.CreateReservationRequest{
		TableIDs:  []string{table.ID.String()},
		StartTime: start,
		EndTime:   end,
		PartySize: 2,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) act(t *testing.T, actor utils.Identity, code, action string) *response.ReservationResponse {
	t.Helper()
	res, err := e.svc.Reservation.UpdateStatus(context.Background(), actor, code, &request.UpdateReservationStatusRequest{Action: action})
	require.NoError(t, err)
	return res
}

// completedOrder creates an order on the reservation and walks it to completed.
func (e *testEnv) completedOrder(t *testing.T, code string, table *entity.Table, food *entity.Food, qty int) *response.OrderResponse {
	t.Helper()
	ctx := context.Background()

	order, err := e.svc.Order.CreateOrder(ctx, e.servant, code, &request.CreateOrderRequest{
		TableID: table.ID.String(),
		Items:   []request.OrderLineRequest{{FoodID: food.ID.String(), Quantity: qty}},
	})
	require.NoError(t, err)

	for _, s := range []entity.OrderStatus{
		entity.OrderStatusConfirmed,
		entity.OrderStatusPreparing,
		entity.OrderStatusReadyToServe,
		entity.OrderStatusServed,
		entity.OrderStatusCompleted,
	} {
		order, err = e.svc.Order.UpdateStatus(ctx, e.servant, order.ID, &request.UpdateOrderStatusRequest{Status: string(s)})
		require.NoError(t, err)
	}
	return order
}

func (e *testEnv) reservation(t *testing.T, code string) *entity.Reservation {
	t.Helper()
	res, err := e.repo.Reservation.FindByCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}
