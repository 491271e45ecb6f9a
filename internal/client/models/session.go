// Package models holds the CLI-side views of server responses and the
// locally persisted session.
package models

import "time"

// StoredSession is what the CLI keeps between invocations.
type StoredSession struct {
	UserID    string
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the server would already refuse the token.
func (s *StoredSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
