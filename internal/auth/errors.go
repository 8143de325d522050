package auth

import "errors"

// Errors surfaced to callers at the authorization chain and login boundary.
var (
	// ErrUnauthenticated covers missing, invalid, expired tokens and tokens
	// whose subject no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCredentials is returned for an unknown username and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled is returned by Login when the credentials are valid
	// but the account is inactive.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrInactiveUser is returned by the active gate.
	ErrInactiveUser = errors.New("inactive user")

	// ErrInsufficientPrivilege is returned by the superuser gate.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
)

// Internal causes, wrapped inside ErrUnauthenticated for diagnostics.
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrMissingSubject  = errors.New("token has no subject")
	ErrSubjectNotFound = errors.New("token subject not found")
)
