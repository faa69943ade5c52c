package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func echoIdentity(t *testing.T, want utils.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := utils.GetIdentity(r.Context())
		assert.True(t, ok)
		assert.Equal(t, want, got)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestIdentity(t *testing.T) {
	userID := uuid.New()

	cases := []struct {
		name   string
		id     string
		role   string
		status int
		want   utils.Identity
	}{
		{"missing", "", "", http.StatusUnauthorized, utils.Identity{}},
		{"not a uuid", "bob", "admin", http.StatusUnauthorized, utils.Identity{}},
		{"unknown role", userID.String(), "chef", http.StatusUnauthorized, utils.Identity{}},
		{"default role", userID.String(), "", http.StatusNoContent, utils.Identity{UserID: userID, Role: utils.RoleCustomer}},
		{"servant", userID.String(), "Servant", http.StatusNoContent, utils.Identity{UserID: userID, Role: utils.RoleServant}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.id != "" {
				req.Header.Set(HeaderUserID, tc.id)
			}
			if tc.role != "" {
				req.Header.Set(HeaderUserRole, tc.role)
			}
			rec := httptest.NewRecorder()
			Identity(zap.NewNop())(echoIdentity(t, tc.want)).ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestStaff(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Identity(zap.NewNop())(Staff(zap.NewNop())(ok))

	for role, status := range map[string]int{
		utils.RoleCustomer: http.StatusForbidden,
		utils.RoleServant:  http.StatusNoContent,
		utils.RoleAdmin:    http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(HeaderUserID, uuid.NewString())
		req.Header.Set(HeaderUserRole, role)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, role)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	limiter := NewRateLimiter(utils.RateLimitConfig{RPS: 1, Burst: 2})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimit(limiter, zap.NewNop())(ok)

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1000"))
}

func TestRecoverAndLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	h := Logger(log)(Recover(log)(panicky))

	req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, 1, logs.FilterMessage("PANIC recovered").Len())

	access := logs.FilterMessage("HTTP request").All()
	if assert.Len(t, access, 1) {
		assert.Equal(t, int64(http.StatusInternalServerError), access[0].ContextMap()["status"])
	}
}
