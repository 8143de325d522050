package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub/apiserver/types"
)

func newTestAuthorizer(t *testing.T, users ...types.User) (*Authorizer, *TokenService, *memDirectory) {
	t.Helper()
	tokens := testTokenService(t)
	dir := newMemDirectory(users...)
	return NewAuthorizer(tokens, dir), tokens, dir
}

func TestAuthorizer_CurrentUser(t *testing.T) {
	t.Parallel()

	alice := types.User{ID: 1, Username: "alice", IsActive: true}
	authz, tokens, _ := newTestAuthorizer(t, alice)

	tok, err := tokens.Issue("alice")
	require.NoError(t, err)

	user, err := authz.CurrentUser(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, alice, user)
}

func TestAuthorizer_CurrentUser_Failures(t *testing.T) {
	t.Parallel()

	authz, tokens, dir := newTestAuthorizer(t, types.User{ID: 1, Username: "alice", IsActive: true})

	expired, err := tokens.IssueWithTTL("alice", -1)
	require.NoError(t, err)
	stale, err := tokens.Issue("bob")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		cause error
	}{
		{"garbage", "garbage", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"subject gone", stale, ErrSubjectNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authz.CurrentUser(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
			assert.ErrorIs(t, err, tt.cause)
		})
	}

	t.Run("deleted after issuance", func(t *testing.T) {
		tok, err := tokens.Issue("alice")
		require.NoError(t, err)
		dir.remove("alice")
		_, err = authz.CurrentUser(context.Background(), tok)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestAuthorizer_CurrentUser_StoreFailure(t *testing.T) {
	t.Parallel()

	authz, tokens, dir := newTestAuthorizer(t)
	dir.err = errors.New("store unavailable")

	tok, err := tokens.Issue("alice")
	require.NoError(t, err)

	_, err = authz.CurrentUser(context.Background(), tok)
	assert.EqualError(t, err, "store unavailable")
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthorizer_Gates(t *testing.T) {
	t.Parallel()

	users := []types.User{
		{ID: 1, Username: "regular", IsActive: true},
		{ID: 2, Username: "admin", IsActive: true, IsSuperuser: true},
		{ID: 3, Username: "disabled", IsActive: false},
		{ID: 4, Username: "disabled-admin", IsActive: false, IsSuperuser: true},
	}
	authz, tokens, _ := newTestAuthorizer(t, users...)

	tests := []struct {
		username     string
		activeErr    error
		superuserErr error
	}{
		{"regular", nil, ErrInsufficientPrivilege},
		{"admin", nil, nil},
		{"disabled", ErrInactiveUser, ErrInactiveUser},
		{"disabled-admin", ErrInactiveUser, ErrInactiveUser},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			tok, err := tokens.Issue(tt.username)
			require.NoError(t, err)

			_, err = authz.CurrentUser(context.Background(), tok)
			require.NoError(t, err, "identity stage ignores role flags")

			_, err = authz.ActiveUser(context.Background(), tok)
			if tt.activeErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.activeErr)
			}

			_, err = authz.Superuser(context.Background(), tok)
			if tt.superuserErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.superuserErr)
			}
		})
	}
}

func TestGates_Monotonic(t *testing.T) {
	t.Parallel()

	for _, active := range []bool{true, false} {
		for _, superuser := range []bool{true, false} {
			user := types.User{IsActive: active, IsSuperuser: superuser}
			if RequireActive(user) != nil {
				assert.Error(t, RequireSuperuser(user), "inactive user passed superuser gate: %+v", user)
			}
			if RequireSuperuser(user) == nil {
				assert.NoError(t, RequireActive(user), "superuser failed active gate: %+v", user)
			}
		}
	}
}

func TestUserContext(t *testing.T) {
	t.Parallel()

	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), types.User{ID: 9, Username: "alice"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, 9, user.ID)
}
