package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/dbx"
	"github.com/dmitrijs2005/shieldauth/internal/server/models"
)

type queries struct {
	create       string
	find         string
	delete       string
	deleteByUser string
}

var postgresQueries = queries{
	create: `INSERT INTO sessions (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`,
	find:         `SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1`,
	delete:       `DELETE FROM sessions WHERE token = $1`,
	deleteByUser: `DELETE FROM sessions WHERE user_id = $1`,
}

var sqliteQueries = queries{
	create: `INSERT INTO sessions (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
	find:         `SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`,
	delete:       `DELETE FROM sessions WHERE token = ?`,
	deleteByUser: `DELETE FROM sessions WHERE user_id = ?`,
}

// SQLRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

// NewPostgresRepository constructs a repository bound to a PostgreSQL DBTX.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}

// NewSQLiteRepository constructs a repository bound to a SQLite DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}

func (r *SQLRepository) Create(ctx context.Context, s *models.Session) error {
	if _, err := r.db.ExecContext(ctx, r.q.create, s.Token, s.UserID, s.ExpiresAt, s.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, r.q.find, token).Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *SQLRepository) Delete(ctx context.Context, token string) (bool, error) {
	n, err := r.exec(ctx, r.q.delete, token)
	return n > 0, err
}

func (r *SQLRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return r.exec(ctx, r.q.deleteByUser, userID)
}

func (r *SQLRepository) exec(ctx context.Context, query string, arg string) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
