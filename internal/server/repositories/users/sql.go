package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/dbx"
	"github.com/dmitrijs2005/shieldauth/internal/server/models"
	"github.com/google/uuid"
)

// queries holds the dialect-specific statements. Column order is shared.
type queries struct {
	create           string
	getByLogin       string
	getByID          string
	updateTOTPSecret string
	initTOTPSecret   string
	touchLastLogin   string
	incrementVersion string
}

// SQLRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, r.q.create,
		user.ID, user.UserName, user.PasskeyCredential, user.TOTPSecret, user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *SQLRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx, r.q.getByLogin, userName)
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, r.q.getByID, id)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.UserName, &user.PasskeyCredential, &user.TOTPSecret,
		&user.CreatedAt, &lastLogin, &user.SettingsVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	return user, nil
}

func (r *SQLRepository) UpdateTOTPSecret(ctx context.Context, userID string, secret []byte) error {
	return r.execOne(ctx, r.q.updateTOTPSecret, secret, userID)
}

func (r *SQLRepository) InitTOTPSecret(ctx context.Context, userID string, secret []byte) error {
	return r.execOne(ctx, r.q.initTOTPSecret, secret, userID)
}

func (r *SQLRepository) TouchLastLogin(ctx context.Context, userID string, version int64, at time.Time) error {
	return r.execOne(ctx, r.q.touchLastLogin, at, userID, version)
}

// execOne runs an UPDATE that must hit exactly one user row.
func (r *SQLRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) IncrementSettingsVersion(ctx context.Context, userID string) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, r.q.incrementVersion, userID).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}
