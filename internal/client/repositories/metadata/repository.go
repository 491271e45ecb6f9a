// Package metadata persists the CLI's local state (the current session and
// a pending enrollment ticket) in a key/value table.
package metadata

import (
	"context"

	"github.com/dmitrijs2005/shieldauth/internal/client/models"
)

// Keys of the metadata table.
const (
	KeyUserID           = "user_id"
	KeyUsername         = "username"
	KeyToken            = "session_token"
	KeyExpiresAt        = "session_expires_at"
	KeyEnrollmentTicket = "enrollment_ticket"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	SaveSession(ctx context.Context, s *models.StoredSession) error
	// LoadSession returns (nil, nil) when no session is stored.
	LoadSession(ctx context.Context) (*models.StoredSession, error)
	DeleteSession(ctx context.Context) error
}
