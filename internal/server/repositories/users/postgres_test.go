package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	qInsert    = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*passkey_credential,\s*totp_secret,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)$`
	qByLogin   = `(?s)^SELECT\s+id,\s*username,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
	qByID      = `(?s)^SELECT\s+id,\s*username,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	qTOTP      = `(?s)^UPDATE\s+users\s+SET\s+totp_secret\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`
	qInitTOTP  = `(?s)^UPDATE\s+users\s+SET\s+totp_secret\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2\s+AND\s+\(totp_secret\s+IS\s+NULL.*\)$`
	qLastLogin = `(?s)^UPDATE\s+users\s+SET\s+last_login_at\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2\s+AND\s+settings_version\s*=\s*\$3$`
	qIncrement = `(?s)^UPDATE\s+users\s+SET\s+settings_version\s*=\s*settings_version\s*\+\s*1\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+settings_version$`
)

var userColumns = []string{"id", "username", "passkey_credential", "totp_secret", "created_at", "last_login_at", "settings_version"}

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsert).
		WithArgs(sqlmock.AnyArg(), "alice", []byte("cred"), []byte(nil), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{UserName: "alice", PasskeyCredential: []byte("cred")}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" || got.UserName != "alice" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_KeepsProvidedID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(qInsert).
		WithArgs("u-1", "alice", []byte("cred"), []byte("totp"), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: "u-1", UserName: "alice", PasskeyCredential: []byte("cred"), TOTPSecret: []byte("totp"), CreatedAt: created}
	if _, err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsert).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasskeyCredential: []byte("c")})
	if !errors.Is(err, common.ErrUsernameTaken) {
		t.Fatalf("want ErrUsernameTaken, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsert).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasskeyCredential: []byte("c")})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetUserByLogin_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now().UTC()
	last := created.Add(time.Hour)
	rows := sqlmock.NewRows(userColumns).
		AddRow("u-1", "alice", []byte("cred"), []byte("totp"), created, last, int64(3))
	mock.ExpectQuery(qByLogin).WithArgs("alice").WillReturnRows(rows)

	got, err := repo.GetUserByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByLogin error: %v", err)
	}
	if got.ID != "u-1" || got.UserName != "alice" || string(got.TOTPSecret) != "totp" || got.SettingsVersion != 3 {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(last) {
		t.Fatalf("unexpected last login: %v", got.LastLoginAt)
	}
}

func TestGetByID_NullColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(userColumns).
		AddRow("u-1", "alice", []byte("cred"), nil, time.Now(), nil, int64(0))
	mock.ExpectQuery(qByID).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.HasTOTP() || got.LastLoginAt != nil {
		t.Fatalf("expected empty optional fields: %+v", got)
	}
}

func TestGetUserByLogin_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qByLogin).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByLogin(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetUserByLogin_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qByLogin).WithArgs("alice").WillReturnError(errors.New("db err"))

	_, err := repo.GetUserByLogin(context.Background(), "alice")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdateTOTPSecret(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qTOTP).WithArgs([]byte("enc"), "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateTOTPSecret(context.Background(), "u-1", []byte("enc")); err != nil {
		t.Fatalf("UpdateTOTPSecret error: %v", err)
	}

	mock.ExpectExec(qTOTP).WithArgs([]byte("enc"), "ghost").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.UpdateTOTPSecret(context.Background(), "ghost", []byte("enc")); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestTouchLastLogin_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(qLastLogin).WithArgs(at, "u-1", int64(0)).WillReturnError(errors.New("db err"))

	err := repo.TouchLastLogin(context.Background(), "u-1", 0, at)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestTouchLastLogin_VersionMismatch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(qLastLogin).WithArgs(at, "u-1", int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.TouchLastLogin(context.Background(), "u-1", 3, at); err != nil {
		t.Fatalf("TouchLastLogin error: %v", err)
	}

	mock.ExpectExec(qLastLogin).WithArgs(at, "u-1", int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.TouchLastLogin(context.Background(), "u-1", 2, at); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestInitTOTPSecret(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInitTOTP).WithArgs([]byte("enc"), "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.InitTOTPSecret(context.Background(), "u-1", []byte("enc")); err != nil {
		t.Fatalf("InitTOTPSecret error: %v", err)
	}

	mock.ExpectExec(qInitTOTP).WithArgs([]byte("enc"), "u-1").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.InitTOTPSecret(context.Background(), "u-1", []byte("enc")); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIncrementSettingsVersion_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"settings_version"}).AddRow(int64(7))
	mock.ExpectQuery(qIncrement).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.IncrementSettingsVersion(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("IncrementSettingsVersion error: %v", err)
	}
	if got != 7 {
		t.Fatalf("unexpected version: %d", got)
	}
}

func TestIncrementSettingsVersion_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qIncrement).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.IncrementSettingsVersion(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
