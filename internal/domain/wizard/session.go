package wizard

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is one user's wizard run. It is ephemeral and expires after its TTL.
type Session struct {
	ID    uuid.UUID   `json:"id"`
	State State       `json:"state"`
	Form  VehicleForm `json:"form"`
	// Version increments on every save and guards concurrent writes
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a session positioned at the vehicle step
func NewSession(now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        uuid.New(),
		State:     NewState(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the session has passed its expiry
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Touch records a modification and slides the expiry forward
func (s *Session) Touch(now time.Time, ttl time.Duration) {
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// SessionRepository stores wizard sessions
type SessionRepository interface {
	// Create stores a new session
	Create(ctx context.Context, s *Session) error

	// Get returns the session or ErrSessionNotFound when it is missing or expired
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Save stores s when the stored version equals s.Version, then increments s.Version.
	// It returns ErrSessionConflict when another write won.
	Save(ctx context.Context, s *Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}
