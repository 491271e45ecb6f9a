package repomanager

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/shieldauth/internal/dbx"
	"github.com/dmitrijs2005/shieldauth/internal/server/migrations"
	"github.com/dmitrijs2005/shieldauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/shieldauth/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLiteRepository(db)
}

// RunMigrations applies the embedded sqlite migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "sqlite")
}

// NewSQLiteRepositoryManager constructs a SQLite-backed RepositoryManager.
func NewSQLiteRepositoryManager() (RepositoryManager, error) {
	return &SQLiteRepositoryManager{}, nil
}

// openSQLite opens dsn with foreign keys enforced. A single connection
// serialises writers and keeps ":memory:" databases alive for the pool's life.
func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, withForeignKeys(dsn))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if dsn == ":memory:" {
		dsn = "file::memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}
