package users

import "github.com/dmitrijs2005/shieldauth/internal/dbx"

var postgresQueries = queries{
	create: `INSERT INTO users (id, username, passkey_credential, totp_secret, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
	getByLogin: `SELECT id, username, passkey_credential, totp_secret, created_at, last_login_at, settings_version
		FROM users WHERE username = $1`,
	getByID: `SELECT id, username, passkey_credential, totp_secret, created_at, last_login_at, settings_version
		FROM users WHERE id = $1`,
	updateTOTPSecret: `UPDATE users SET totp_secret = $1 WHERE id = $2`,
	initTOTPSecret:   `UPDATE users SET totp_secret = $1
		WHERE id = $2 AND (totp_secret IS NULL OR octet_length(totp_secret) = 0)`,
	touchLastLogin:   `UPDATE users SET last_login_at = $1 WHERE id = $2 AND settings_version = $3`,
	incrementVersion: `UPDATE users SET settings_version = settings_version + 1
		WHERE id = $1 RETURNING settings_version`,
}

// NewPostgresRepository constructs a PostgreSQL repository bound to db.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}
