package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventSessionExpired   EventType = "session.expired"
	EventSessionLoggedOut EventType = "session.logged_out"
)

// ExpiryReason tells subscribers why a session was torn down.
type ExpiryReason string

const (
	ReasonTokenExpired ExpiryReason = "token_expired"
	ReasonRejected     ExpiryReason = "rejected_by_server"
)

// Event represents a session lifecycle change.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	User domain.User `json:"user"`
}

// SessionExpiredPayload payload.
type SessionExpiredPayload struct {
	Reason ExpiryReason `json:"reason"`
	Method string       `json:"method"`
	Path   string       `json:"path"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionLoggedOutPayload payload.
type SessionLoggedOutPayload struct {
	User *domain.User `json:"user,omitempty"`
}
