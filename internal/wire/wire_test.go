package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-ops/internal/data/entity"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/usecase"
	"restaurant-ops/pkg/locker"
	"restaurant-ops/pkg/middleware"
	"restaurant-ops/pkg/notifier"
	"restaurant-ops/pkg/payos"
	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	err error
}

func (g stubGateway) CreatePaymentLink(_ context.Context, req payos.PaymentRequest) (*payos.PaymentLink, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &payos.PaymentLink{OrderCode: req.OrderCode, Amount: req.Amount, CheckoutURL: "https://pay.example/x"}, nil
}

func (g stubGateway) VerifyWebhook(*payos.Webhook) error { return nil }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	t      *testing.T
	router http.Handler
	store  *repository.MemoryStore
	table  *entity.Table
	user   uuid.UUID
}

func newServer(t *testing.T, gateway usecase.PaymentGateway) *server {
	t.Helper()
	store := repository.NewMemoryStore()
	now := time.Now()
	table := &entity.Table{Base: entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}, Number: 5, Capacity: 4, IsOpen: true}
	store.AddTable(table)

	config := &utils.Config{RateLimit: utils.RateLimitConfig{RPS: 1000, Burst: 1000}}
	app := Wiring(repository.NewMemoryRepository(store), usecase.Deps{
		Locker:   locker.NewLocalLocker(time.Second),
		Notifier: notifier.NewLogNotifier(zap.NewNop()),
		Gateway:  gateway,
	}, config, zap.NewNop())

	return &server{t: t, router: app.Router, store: store, table: table, user: uuid.New()}
}

func (s *server) do(method, path, role string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(middleware.HeaderUserID, s.user.String())
		req.Header.Set(middleware.HeaderUserRole, role)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *server) book(start, end time.Time) string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/reservations", utils.RoleCustomer, map[string]any{
		"table_ids":  []string{s.table.ID.String()},
		"start_time": start,
		"end_time":   end,
		"party_size": 2,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var res struct {
		Code string `json:"code"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &res))
	return res.Code
}

func evening(hour, minute int) time.Time {
	return time.Date(2030, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestHealth(t *testing.T) {
	s := newServer(t, stubGateway{})
	rec, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReservationRoutesRequireIdentity(t *testing.T) {
	s := newServer(t, stubGateway{})

	rec, _ := s.do(http.MethodPost, "/api/reservations", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/reservations/ABCD1234", "overlord", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndConflict(t *testing.T) {
	s := newServer(t, stubGateway{})
	code := s.book(evening(18, 0), evening(20, 0))
	assert.Len(t, code, 8)

	rec, env := s.do(http.MethodPost, "/api/reservations", utils.RoleCustomer, map[string]any{
		"table_ids":  []string{s.table.ID.String()},
		"start_time": evening(19, 30),
		"end_time":   evening(21, 0),
		"party_size": 2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Status)

	var details struct {
		ConflictingTableIDs []string `json:"conflicting_table_ids"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Equal(t, []string{s.table.ID.String()}, details.ConflictingTableIDs)
}

func TestAvailabilityEndpoint(t *testing.T) {
	s := newServer(t, stubGateway{})
	s.book(evening(18, 0), evening(20, 0))

	rec, env := s.do(http.MethodPost, "/api/availability", "", map[string]any{
		"table_ids":  []string{s.table.ID.String()},
		"start_time": evening(22, 5),
		"end_time":   evening(23, 30),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Available bool `json:"available"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, out.Available)
}

func TestStatusCodes(t *testing.T) {
	s := newServer(t, stubGateway{})
	code := s.book(evening(18, 0), evening(20, 0))

	rec, _ := s.do(http.MethodGet, "/api/reservations/NOPE0000", utils.RoleCustomer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodPut, "/api/reservations/"+code+"/status", utils.RoleCustomer, map[string]string{"action": "confirm"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodPut, "/api/reservations/"+code+"/status", utils.RoleServant, map[string]string{"action": "teleport"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/reservations", utils.RoleCustomer, "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/reservations/transactions/abc", utils.RoleCustomer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/payments/"+code+"/cash", utils.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTableRoutes(t *testing.T) {
	s := newServer(t, stubGateway{})
	code := s.book(evening(18, 0), evening(20, 0))

	rec, env := s.do(http.MethodGet, "/api/tables/5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var table struct {
		Number              int      `json:"number"`
		CurrentReservations []string `json:"current_reservations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &table))
	assert.Equal(t, 5, table.Number)
	assert.Equal(t, []string{code}, table.CurrentReservations)

	rec, _ = s.do(http.MethodGet, "/api/tables/99", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = s.do(http.MethodGet, "/api/tables?page=1&per_page=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data       []json.RawMessage `json:"data"`
		Pagination struct {
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	rec, env = s.do(http.MethodGet, "/api/tables?page=2&per_page=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.Data)

	rec, _ = s.do(http.MethodGet, "/api/tables?per_page=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAlwaysAcknowledged(t *testing.T) {
	s := newServer(t, stubGateway{})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewBufferString("{broken"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := s.do(http.MethodPost, "/api/payments/webhook", "", payos.Webhook{
		Code:    payos.SuccessCode,
		Success: true,
		Data:    payos.WebhookData{OrderCode: 42, Amount: 1000},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var result usecase.WebhookResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Applied)
	assert.Equal(t, "unknown transaction code", result.Reason)
}

func TestPaymentIntentGatewayDownIs502(t *testing.T) {
	s := newServer(t, stubGateway{err: errors.New("dial tcp: connection refused")})
	now := time.Now()
	food := &entity.Food{Base: entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}, Name: "Pho", Price: decimal.NewFromInt(45_000), IsAvailable: true}
	s.store.AddFood(food)

	code := s.book(evening(18, 0), evening(20, 0))

	rec, env := s.do(http.MethodPost, "/api/reservations/"+code+"/orders", utils.RoleServant, map[string]any{
		"table_id": s.table.ID.String(),
		"items":    []map[string]any{{"food_id": food.ID.String(), "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))

	for _, status := range []string{"confirmed", "preparing", "ready_to_serve", "served", "completed"} {
		rec, _ = s.do(http.MethodPut, "/api/orders/"+order.ID+"/status", utils.RoleServant, map[string]string{"status": status})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec, _ = s.do(http.MethodPost, "/api/payments/"+code+"/intent", utils.RoleServant, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, env = s.do(http.MethodGet, "/api/payments/"+code+"/status", utils.RoleServant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "PENDING", status.Status)
}
