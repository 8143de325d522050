package types

import "time"

// User represents an account in the system.
// It contains identity, role flags, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, assigned at creation.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// FullName is the user's optional display name.
	FullName *string `json:"full_name" db:"full_name"`

	// IsActive reports whether the account may sign in and use the API.
	IsActive bool `json:"is_active" db:"is_active"`

	// IsSuperuser grants access to administrative operations.
	IsSuperuser bool `json:"is_superuser" db:"is_superuser"`

	// PasswordHash stores the bcrypt representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"hashed_password"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserUpdate lists the fields a caller may change on an account.
// A nil field is left untouched.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Password *string `json:"password,omitempty"`

	// IsActive is only honoured on administrative updates.
	IsActive *bool `json:"is_active,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.FullName == nil && u.Password == nil && u.IsActive == nil
}
