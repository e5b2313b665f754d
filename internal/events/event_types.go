package events

import (
	"time"

	"github.com/spec-kit/auth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventPasswordChanged EventType = "password_changed"
)

// Event represents a security-relevant occurrence emitted by the auth
// service. Username is the attempted subject; UserID is set only when
// the subject resolved to a stored account.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Username  string      `json:"username"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Role domain.Role `json:"role"`
}

// LoginFailedPayload payload. Reason stays coarse on purpose; the
// credential-failure cause is never recorded in a way that could leak
// back out.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}
