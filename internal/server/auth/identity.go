package auth

import (
	"context"

	"github.com/slange/storefront/internal/server/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Role   models.Role
	User   *models.User
}

// NewIdentity builds an Identity from a loaded user record.
func NewIdentity(u *models.User) *Identity {
	return &Identity{UserID: u.ID, Role: u.Role, User: u}
}

// HasRole reports whether the identity holds one of roles.
func (i *Identity) HasRole(roles ...models.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity attached by the auth middleware.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}
