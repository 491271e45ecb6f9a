package models

import "time"

// Session is an opaque bearer token bound to one user. It is never updated
// after creation; expiry is fixed when the token is minted.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
