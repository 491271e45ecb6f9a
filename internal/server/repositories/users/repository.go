// Package users persists registered identities.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/server/models"
)

// Repository stores and looks up users.
type Repository interface {
	// Create inserts user, assigning an ID when empty. A taken username
	// yields common.ErrUsernameTaken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin and GetByID return common.ErrorNotFound when absent.
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UpdateTOTPSecret replaces the stored (encrypted) TOTP secret.
	UpdateTOTPSecret(ctx context.Context, userID string, secret []byte) error

	// InitTOTPSecret stores the first TOTP secret. It returns
	// common.ErrorNotFound when the user is absent or already has one.
	InitTOTPSecret(ctx context.Context, userID string, secret []byte) error

	// TouchLastLogin records a successful login time, provided the user's
	// settings version is still version; otherwise common.ErrorNotFound.
	TouchLastLogin(ctx context.Context, userID string, version int64, at time.Time) error

	// IncrementSettingsVersion bumps and returns the settings version.
	IncrementSettingsVersion(ctx context.Context, userID string) (int64, error)
}
