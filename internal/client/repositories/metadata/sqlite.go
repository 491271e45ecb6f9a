package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/client/models"
	"github.com/dmitrijs2005/shieldauth/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns (nil, nil) for an absent key.
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, r.now())
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata`)
	if err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

// SaveSession writes every session key. Run it inside dbx.WithTx to make
// the write atomic.
func (r *SQLiteRepository) SaveSession(ctx context.Context, s *models.StoredSession) error {
	pairs := []struct {
		key   string
		value string
	}{
		{KeyUserID, s.UserID},
		{KeyUsername, s.Username},
		{KeyToken, s.Token},
		{KeyExpiresAt, s.ExpiresAt.UTC().Format(time.RFC3339)},
	}
	for _, p := range pairs {
		if err := r.Set(ctx, p.key, []byte(p.value)); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) LoadSession(ctx context.Context) (*models.StoredSession, error) {
	token, err := r.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, nil
	}

	s := &models.StoredSession{Token: string(token)}

	userID, err := r.Get(ctx, KeyUserID)
	if err != nil {
		return nil, err
	}
	s.UserID = string(userID)

	username, err := r.Get(ctx, KeyUsername)
	if err != nil {
		return nil, err
	}
	s.Username = string(username)

	expires, err := r.Get(ctx, KeyExpiresAt)
	if err != nil {
		return nil, err
	}
	if expires != nil {
		t, err := time.Parse(time.RFC3339, string(expires))
		if err != nil {
			return nil, fmt.Errorf("corrupt metadata[%s]: %w", KeyExpiresAt, err)
		}
		s.ExpiresAt = t
	}

	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context) error {
	for _, k := range []string{KeyToken, KeyUserID, KeyUsername, KeyExpiresAt} {
		if err := r.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
