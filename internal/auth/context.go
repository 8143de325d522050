package auth

import (
	"context"

	"github.com/userhub/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// WithUser stores the resolved user for the lifetime of a request.
func WithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}
