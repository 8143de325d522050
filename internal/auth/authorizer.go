package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/types"
)

// Authorizer resolves bearer tokens to users and applies the role gates.
type Authorizer struct {
	tokens *TokenService
	users  UserDirectory
}

func NewAuthorizer(tokens *TokenService, users UserDirectory) *Authorizer {
	return &Authorizer{tokens: tokens, users: users}
}

// CurrentUser is the identity stage. Token failures and vanished subjects are
// reported as ErrUnauthenticated wrapping the specific cause. Directory
// failures other than not-found are returned as-is.
func (a *Authorizer) CurrentUser(ctx context.Context, token string) (types.User, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := a.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrSubjectNotFound)
		}
		return types.User{}, err
	}
	return user, nil
}

// ActiveUser runs the identity stage followed by the active gate.
func (a *Authorizer) ActiveUser(ctx context.Context, token string) (types.User, error) {
	user, err := a.CurrentUser(ctx, token)
	if err != nil {
		return types.User{}, err
	}
	if err := RequireActive(user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Superuser runs the full chain.
func (a *Authorizer) Superuser(ctx context.Context, token string) (types.User, error) {
	user, err := a.CurrentUser(ctx, token)
	if err != nil {
		return types.User{}, err
	}
	if err := RequireSuperuser(user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// RequireActive rejects inactive users.
func RequireActive(user types.User) error {
	if !user.IsActive {
		return ErrInactiveUser
	}
	return nil
}

// RequireSuperuser rejects users that are inactive or lack the superuser flag.
func RequireSuperuser(user types.User) error {
	if err := RequireActive(user); err != nil {
		return err
	}
	if !user.IsSuperuser {
		return ErrInsufficientPrivilege
	}
	return nil
}
