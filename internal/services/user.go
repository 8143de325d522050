package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/userhub/apiserver/internal/auth"
	"github.com/userhub/apiserver/internal/store"
	"github.com/userhub/apiserver/types"
)

var (
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrEmailTaken      = errors.New("email already exists")
	ErrAccountExists   = errors.New("username or email already exists")
	ErrSelfDelete      = errors.New("cannot delete your own account")
	ErrSelfDeactivate  = errors.New("cannot deactivate your own account")
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrEmptyIdentifier = errors.New("username and email must not be empty")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	auth.UserDirectory
	List(ctx context.Context, offset, limit int) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Username string
	Email    string
	FullName *string
	Password string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	hasher *auth.PasswordHasher
	events *AccountEvents
	logger logrus.FieldLogger
}

func NewUserService(repo UserRepository, hasher *auth.PasswordHasher, events *AccountEvents, logger logrus.FieldLogger) *UserService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserService{
		repo:   repo,
		hasher: hasher,
		events: events,
		logger: logger,
	}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, error) {
	return s.repo.List(ctx, offset, limit)
}

// Register creates an active, non-superuser account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	return s.create(ctx, in, false)
}

// CreateSuperuser creates an active account with administrative rights.
func (s *UserService) CreateSuperuser(ctx context.Context, in RegisterInput) (types.User, error) {
	return s.create(ctx, in, true)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, superuser bool) (types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return types.User{}, ErrMissingFields
	}
	if err := validateEmail(in.Email); err != nil {
		return types.User{}, err
	}

	if err := s.ensureUsernameFree(ctx, in.Username, 0); err != nil {
		return types.User{}, err
	}
	if err := s.ensureEmailFree(ctx, in.Email, 0); err != nil {
		return types.User{}, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     trimOptional(in.FullName),
		IsActive:     true,
		IsSuperuser:  superuser,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrAccountExists
		}
		return types.User{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"username":  user.Username,
		"superuser": superuser,
	}).Info("user registered")
	s.events.Publish(ctx, types.AccountRegistered, user, 0)
	return user, nil
}

// UpdateProfile applies a self-service update. Activity and role flags are
// not editable through this path.
func (s *UserService) UpdateProfile(ctx context.Context, current types.User, upd types.UserUpdate) (types.User, error) {
	upd.IsActive = nil
	return s.apply(ctx, current, upd, current.ID)
}

// UpdateUser applies an administrative update to the user with id.
func (s *UserService) UpdateUser(ctx context.Context, actor types.User, id int, upd types.UserUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if upd.IsActive != nil && !*upd.IsActive && user.ID == actor.ID {
		return types.User{}, ErrSelfDeactivate
	}
	return s.apply(ctx, user, upd, actor.ID)
}

func (s *UserService) apply(ctx context.Context, user types.User, upd types.UserUpdate, actorID int) (types.User, error) {
	if upd.Empty() {
		return user, nil
	}

	wasActive := user.IsActive

	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return types.User{}, ErrEmptyIdentifier
		}
		if username != user.Username {
			if err := s.ensureUsernameFree(ctx, username, user.ID); err != nil {
				return types.User{}, err
			}
			user.Username = username
		}
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email == "" {
			return types.User{}, ErrEmptyIdentifier
		}
		if err := validateEmail(email); err != nil {
			return types.User{}, err
		}
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return types.User{}, err
			}
			user.Email = email
		}
	}
	if upd.FullName != nil {
		user.FullName = trimOptional(upd.FullName)
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return types.User{}, ErrEmptyPassword
		}
		hashed, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return types.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hashed
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrAccountExists
		}
		return types.User{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  updated.ID,
		"actor_id": actorID,
	}).Info("user updated")
	s.events.Publish(ctx, types.AccountUpdated, updated, actorID)
	if wasActive != updated.IsActive {
		s.events.Publish(ctx, activityEvent(updated.IsActive), updated, actorID)
	}
	return updated, nil
}

// ToggleActive flips the active flag of the user with id. An administrator
// cannot toggle their own account.
func (s *UserService) ToggleActive(ctx context.Context, actor types.User, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if user.ID == actor.ID {
		return types.User{}, ErrSelfDeactivate
	}

	user.IsActive = !user.IsActive
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   updated.ID,
		"actor_id":  actor.ID,
		"is_active": updated.IsActive,
	}).Info("user activity toggled")
	s.events.Publish(ctx, activityEvent(updated.IsActive), updated, actor.ID)
	return updated, nil
}

// Delete removes the user with id. An administrator cannot delete their own
// account.
func (s *UserService) Delete(ctx context.Context, actor types.User, id int) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.ID == actor.ID {
		return ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"actor_id": actor.ID,
	}).Info("user deleted")
	s.events.Publish(ctx, types.AccountDeleted, user, actor.ID)
	return nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string, selfID int) error {
	existing, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		if existing.ID != selfID {
			return ErrUsernameTaken
		}
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, selfID int) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		if existing.ID != selfID {
			return ErrEmailTaken
		}
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func activityEvent(active bool) types.AccountEventType {
	if active {
		return types.AccountActivated
	}
	return types.AccountDeactivated
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
