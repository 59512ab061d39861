package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// Require returns u when its role is one of allowed. An empty allowed set
// admits nobody.
func Require(u *models.User, allowed ...models.Role) (*models.User, error) {
	if u == nil {
		return nil, models.ErrUnauthenticated
	}
	if !slices.Contains(allowed, u.Role) {
		return nil, fmt.Errorf("%w: role %q is not allowed", models.ErrForbidden, u.Role)
	}
	return u, nil
}

type userContextKey struct{}

// ContextWithUser attaches the authenticated identity to ctx.
func ContextWithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the identity attached by ContextWithUser.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*models.User)
	return u, ok && u != nil
}
