package domain

import "time"

// Session is a customer session as reported by the session provider.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionEventType enumerates the change notifications a provider emits.
type SessionEventType string

const (
	EventSignedIn       SessionEventType = "signed_in"
	EventSignedOut      SessionEventType = "signed_out"
	EventTokenRefreshed SessionEventType = "token_refreshed"
)

// SessionEvent is delivered to change subscribers. Session is nil for
// EventSignedOut.
type SessionEvent struct {
	Type    SessionEventType `json:"type"`
	Session *Session         `json:"session,omitempty"`
}

// Identity is the account record owned by the identity provider.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
