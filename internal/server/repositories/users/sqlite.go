package users

import "github.com/dmitrijs2005/shieldauth/internal/dbx"

var sqliteQueries = queries{
	create: `INSERT INTO users (id, username, passkey_credential, totp_secret, created_at)
		VALUES (?, ?, ?, ?, ?)`,
	getByLogin: `SELECT id, username, passkey_credential, totp_secret, created_at, last_login_at, settings_version
		FROM users WHERE username = ?`,
	getByID: `SELECT id, username, passkey_credential, totp_secret, created_at, last_login_at, settings_version
		FROM users WHERE id = ?`,
	updateTOTPSecret: `UPDATE users SET totp_secret = ? WHERE id = ?`,
	initTOTPSecret:   `UPDATE users SET totp_secret = ?
		WHERE id = ? AND (totp_secret IS NULL OR length(totp_secret) = 0)`,
	touchLastLogin:   `UPDATE users SET last_login_at = ? WHERE id = ? AND settings_version = ?`,
	incrementVersion: `UPDATE users SET settings_version = settings_version + 1
		WHERE id = ? RETURNING settings_version`,
}

// NewSQLiteRepository constructs a SQLite repository bound to db.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}
