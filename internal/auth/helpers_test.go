package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type memDirectory struct {
	mu    sync.Mutex
	users map[string]types.User
	err   error
}

func newMemDirectory(users ...types.User) *memDirectory {
	d := &memDirectory{users: make(map[string]types.User)}
	for _, u := range users {
		d.users[u.Username] = u
	}
	return d
}

func (d *memDirectory) put(user types.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.Username] = user
}

func (d *memDirectory) remove(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, username)
}

func (d *memDirectory) GetByID(_ context.Context, id int) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return types.User{}, d.err
	}
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (d *memDirectory) GetByUsername(_ context.Context, username string) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return types.User{}, d.err
	}
	u, ok := d.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (d *memDirectory) GetByEmail(_ context.Context, email string) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return types.User{}, d.err
	}
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func testHasher() *PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost)
}

func testTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(config.AuthConfig{
		SecretKey: "test-secret",
		Algorithm: "HS256",
		TokenTTL:  30 * time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func newTestUser(t *testing.T, id int, username, password string, active, superuser bool) types.User {
	t.Helper()
	hash, err := testHasher().Hash(password)
	require.NoError(t, err)
	return types.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		IsActive:     active,
		IsSuperuser:  superuser,
		PasswordHash: hash,
	}
}
