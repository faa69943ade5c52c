package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	RoleCustomer = "customer"
	RoleServant  = "servant"
	RoleAdmin    = "admin"
)

// Identity is the caller as asserted by the upstream auth gateway.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// IsStaff reports whether the caller works in the restaurant.
func (i Identity) IsStaff() bool {
	return i.Role == RoleServant || i.Role == RoleAdmin
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func SetIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}
