package middleware

import (
	"net/http"
	"strings"

	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Identity turns the headers set by the upstream auth gateway into a context identity.
func Identity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if rawID == "" {
				utils.ResponseUnauthorized(w, "Missing caller identity")
				return
			}

			userID, err := uuid.Parse(rawID)
			if err != nil || userID == uuid.Nil {
				logger.Warn("Invalid caller identity", zap.String("user_id", rawID))
				utils.ResponseUnauthorized(w, "Invalid caller identity")
				return
			}

			role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))
			switch role {
			case "":
				role = utils.RoleCustomer
			case utils.RoleCustomer, utils.RoleServant, utils.RoleAdmin:
			default:
				logger.Warn("Unknown caller role",
					zap.String("user_id", rawID),
					zap.String("role", role))
				utils.ResponseUnauthorized(w, "Unknown caller role")
				return
			}

			ctx := utils.SetIdentity(r.Context(), utils.Identity{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Staff rejects callers that are not servants or admins. Must run after Identity.
func Staff(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := utils.GetIdentity(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}
			if !id.IsStaff() {
				logger.Warn("Staff check: customer access attempt",
					zap.String("user_id", id.UserID.String()),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Staff access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
