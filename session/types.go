package session

import (
	"context"
	"time"
)

// Session is the state kept for one caller. Optional fields are nil until
// set.
type Session struct {
	ID        string    `json:"id"`
	Subject   *string   `json:"subject,omitempty"`
	Token     *string   `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) clone() *Session {
	c := *s
	if s.Subject != nil {
		v := *s.Subject
		c.Subject = &v
	}
	if s.Token != nil {
		v := *s.Token
		c.Token = &v
	}
	return &c
}

// Store defines the interface for session storage operations.
type Store interface {
	// Put creates or replaces a session.
	Put(ctx context.Context, s *Session) error

	// Get retrieves a session by ID.
	// Returns nil if the session is not found (not an error).
	Get(ctx context.Context, id string) (*Session, error)

	// Delete deletes a session by ID.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session expired at now and returns how
	// many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
