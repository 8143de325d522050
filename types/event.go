package types

import "time"

// AccountEventType names a user lifecycle transition.
type AccountEventType string

const (
	AccountRegistered  AccountEventType = "user.registered"
	AccountUpdated     AccountEventType = "user.updated"
	AccountActivated   AccountEventType = "user.activated"
	AccountDeactivated AccountEventType = "user.deactivated"
	AccountDeleted     AccountEventType = "user.deleted"
)

// AccountEvent is the payload published for user lifecycle changes.
// It never carries credentials.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	UserID     int              `json:"user_id"`
	Username   string           `json:"username"`
	ActorID    int              `json:"actor_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
