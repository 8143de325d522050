// Package storetest provides an in-memory user store for tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/types"
)

// UserStore is a concurrency-safe in-memory user repository that mirrors the
// postgres repository's uniqueness and not-found behaviour.
type UserStore struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User

	// Err, when set, is returned by every operation.
	Err error
}

func NewUserStore() *UserStore {
	return &UserStore{nextID: 1, users: make(map[int]types.User)}
}

func (s *UserStore) GetByID(_ context.Context, id int) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return types.User{}, s.Err
	}
	user, ok := s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (types.User, error) {
	return s.find(func(u types.User) bool { return u.Username == username })
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (types.User, error) {
	return s.find(func(u types.User) bool { return u.Email == email })
}

func (s *UserStore) List(_ context.Context, offset, limit int) ([]types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	ids := make([]int, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	if offset < 0 {
		offset = 0
	}
	if offset > len(ids) {
		offset = len(ids)
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	users := make([]types.User, 0, end-offset)
	for _, id := range ids[offset:end] {
		users = append(users, s.users[id])
	}
	return users, nil
}

func (s *UserStore) Create(_ context.Context, user types.User) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return types.User{}, s.Err
	}
	if s.conflictLocked(user) {
		return types.User{}, store.ErrConflict
	}

	now := time.Now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.nextID++
	s.users[user.ID] = user
	return user, nil
}

func (s *UserStore) Update(_ context.Context, user types.User) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return types.User{}, s.Err
	}
	if _, ok := s.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	if s.conflictLocked(user) {
		return types.User{}, store.ErrConflict
	}

	user.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = user
	return user, nil
}

func (s *UserStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) find(match func(types.User) bool) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return types.User{}, s.Err
	}
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (s *UserStore) conflictLocked(user types.User) bool {
	for id, existing := range s.users {
		if id == user.ID {
			continue
		}
		if existing.Username == user.Username || existing.Email == user.Email {
			return true
		}
	}
	return false
}
