package auth

import (
	"context"

	"github.com/userhub/apiserver/types"
)

// UserDirectory is the read side of the user store the auth core depends on.
// Lookups return store.ErrNotFound when no user matches; any other error is a
// store failure and is passed through unchanged.
type UserDirectory interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
}
