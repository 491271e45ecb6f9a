// Package sessions declares the repository contract for opaque bearer
// sessions and its PostgreSQL and SQLite implementations.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/shieldauth/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking sessions.
type Repository interface {
	// Create stores a new session. Token and ExpiresAt are chosen by the caller.
	Create(ctx context.Context, session *models.Session) error

	// Find looks up a session by its token and returns common.ErrorNotFound
	// when it is absent. Expiry is not checked here.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Delete removes a session by token and reports whether one existed.
	// Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteByUser removes every session of userID and returns how many went.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
