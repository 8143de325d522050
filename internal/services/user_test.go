package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub/apiserver/internal/auth"
	"github.com/userhub/apiserver/internal/mq"
	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/internal/store/storetest"
	"github.com/userhub/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type capturingBackend struct {
	mu     sync.Mutex
	events []types.AccountEvent
	err    error
}

func (b *capturingBackend) Publish(_ context.Context, _ string, data []byte, _ map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	var event types.AccountEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	b.events = append(b.events, event)
	return "msg", nil
}

func (b *capturingBackend) Subscribe(ctx context.Context, _ string, handler mq.Handler) error {
	b.mu.Lock()
	events := append([]types.AccountEvent(nil), b.events...)
	b.mu.Unlock()
	for _, event := range events {
		data, _ := json.Marshal(event)
		if err := handler(ctx, mq.Message{Data: data}); err != nil {
			return err
		}
	}
	return handler(ctx, mq.Message{ID: "bad", Data: []byte("{not json")})
}

func (b *capturingBackend) Close() error { return nil }

func (b *capturingBackend) eventTypes() []types.AccountEventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.AccountEventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc     *UserService
	repo    *storetest.UserStore
	backend *capturingBackend
	hasher  *auth.PasswordHasher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	repo := storetest.NewUserStore()
	backend := &capturingBackend{}
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	events := NewAccountEvents(mq.New(backend), "account-events", logger)
	return fixture{
		svc:     NewUserService(repo, hasher, events, logger),
		repo:    repo,
		backend: backend,
		hasher:  hasher,
	}
}

func ptr[T any](v T) *T { return &v }

func TestUserService_Register(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "  alice ",
		Email:    "alice@example.com",
		FullName: ptr(" Alice Liddell "),
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice Liddell", *user.FullName)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.True(t, f.hasher.Verify("secret123", user.PasswordHash))
	assert.Equal(t, []types.AccountEventType{types.AccountRegistered}, f.backend.eventTypes())
}

func TestUserService_Register_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing username", RegisterInput{Email: "x@example.com", Password: "pw"}, ErrMissingFields},
		{"missing password", RegisterInput{Username: "x", Email: "x@example.com"}, ErrMissingFields},
		{"bad email", RegisterInput{Username: "x", Email: "not-an-email", Password: "pw"}, ErrInvalidEmail},
		{"duplicate username", RegisterInput{Username: "alice", Email: "other@example.com", Password: "pw"}, ErrUsernameTaken},
		{"duplicate email", RegisterInput{Username: "other", Email: "alice@example.com", Password: "pw"}, ErrEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserService_CreateSuperuser(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.CreateSuperuser(context.Background(), RegisterInput{Username: "root", Email: "root@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsActive)
}

func TestUserService_UpdateProfile_AllowList(t *testing.T) {
	f := newFixture(t)
	alice, err := f.svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "alice@example.com", Password: "old"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateProfile(context.Background(), alice, types.UserUpdate{
		FullName: ptr("Alice"),
		Password: ptr("new-password"),
		IsActive: ptr(false),
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", *updated.FullName)
	assert.True(t, updated.IsActive, "self-service updates cannot change activity")
	assert.False(t, updated.IsSuperuser)
	assert.True(t, f.hasher.Verify("new-password", updated.PasswordHash))
	assert.False(t, f.hasher.Verify("old", updated.PasswordHash))
}

func TestUserService_UpdateProfile_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = f.svc.UpdateProfile(ctx, alice, types.UserUpdate{Username: ptr("bob")})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = f.svc.UpdateProfile(ctx, alice, types.UserUpdate{Email: ptr("bob@example.com")})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.UpdateProfile(ctx, alice, types.UserUpdate{Username: ptr("  ")})
	assert.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = f.svc.UpdateProfile(ctx, alice, types.UserUpdate{Password: ptr("")})
	assert.ErrorIs(t, err, ErrEmptyPassword)

	same, err := f.svc.UpdateProfile(ctx, alice, types.UserUpdate{Username: ptr("alice")})
	require.NoError(t, err)
	assert.Equal(t, "alice", same.Username)
}

func TestUserService_UpdateUser_Deactivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, err := f.svc.CreateSuperuser(ctx, RegisterInput{Username: "root", Email: "root@example.com", Password: "pw"})
	require.NoError(t, err)
	alice, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateUser(ctx, admin, alice.ID, types.UserUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = f.svc.UpdateUser(ctx, admin, admin.ID, types.UserUpdate{IsActive: ptr(false)})
	assert.ErrorIs(t, err, ErrSelfDeactivate)

	_, err = f.svc.UpdateUser(ctx, admin, 999, types.UserUpdate{FullName: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, []types.AccountEventType{
		types.AccountRegistered,
		types.AccountRegistered,
		types.AccountUpdated,
		types.AccountDeactivated,
	}, f.backend.eventTypes())
}

func TestUserService_ToggleActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, err := f.svc.CreateSuperuser(ctx, RegisterInput{Username: "root", Email: "root@example.com", Password: "pw"})
	require.NoError(t, err)
	alice, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	toggled, err := f.svc.ToggleActive(ctx, admin, alice.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = f.svc.ToggleActive(ctx, admin, alice.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = f.svc.ToggleActive(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, ErrSelfDeactivate)

	_, err = f.svc.ToggleActive(ctx, admin, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin, err := f.svc.CreateSuperuser(ctx, RegisterInput{Username: "root", Email: "root@example.com", Password: "pw"})
	require.NoError(t, err)
	alice, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, admin, admin.ID), ErrSelfDelete)
	require.NoError(t, f.svc.Delete(ctx, admin, alice.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, alice.ID), store.ErrNotFound)

	_, err = f.svc.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := f.svc.Register(ctx, RegisterInput{Username: name, Email: name + "@example.com", Password: "pw"})
		require.NoError(t, err)
	}

	users, err := f.svc.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "b", users[0].Username)
}

func TestUserService_StoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("store unavailable")
	f.repo.Err = boom

	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	assert.ErrorIs(t, err, boom)
}

func TestAccountEvents_PublishFailureIsSwallowed(t *testing.T) {
	logger, hook := test.NewNullLogger()
	backend := &capturingBackend{err: errors.New("broker down")}
	events := NewAccountEvents(mq.New(backend), "account-events", logger)

	events.Publish(context.Background(), types.AccountDeleted, types.User{ID: 3, Username: "alice"}, 1)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestAccountEvents_Disabled(t *testing.T) {
	events := NewAccountEvents(nil, "account-events", nil)
	events.Publish(context.Background(), types.AccountRegistered, types.User{ID: 1}, 0)

	err := events.Tail(context.Background(), func(types.AccountEvent) error { return nil })
	assert.ErrorIs(t, err, ErrEventsDisabled)

	var nilEvents *AccountEvents
	nilEvents.Publish(context.Background(), types.AccountRegistered, types.User{ID: 1}, 0)
}

func TestAccountEvents_Tail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	var seen []types.AccountEvent
	err = f.svc.events.Tail(context.Background(), func(e types.AccountEvent) error {
		seen = append(seen, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 1, "malformed messages are dropped")
	assert.Equal(t, "alice", seen[0].Username)
	assert.Equal(t, types.AccountRegistered, seen[0].Type)
}
