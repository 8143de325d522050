package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/types"
)

// Authenticator checks a username/password pair against the user directory.
type Authenticator struct {
	users     UserDirectory
	hasher    *PasswordHasher
	dummyHash string
}

// NewAuthenticator builds an Authenticator. It hashes a random value once so
// that lookups for unknown usernames still pay for one bcrypt comparison.
func NewAuthenticator(users UserDirectory, hasher *PasswordHasher) (*Authenticator, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, err
	}
	dummy, err := hasher.Hash(hex.EncodeToString(buf[:]))
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		users:     users,
		hasher:    hasher,
		dummyHash: dummy,
	}, nil
}

// Authenticate returns the user when password matches. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.hasher.Verify(password, a.dummyHash)
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}
