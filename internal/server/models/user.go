// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered identity. Credential and secret columns hold cipher
// output only; TOTPSecret stays empty until TOTP setup completes.
type User struct {
	ID                string
	UserName          string
	PasskeyCredential []byte
	TOTPSecret        []byte
	CreatedAt         time.Time
	LastLoginAt       *time.Time
	SettingsVersion   int64
}

// HasTOTP reports whether a TOTP secret has been stored.
func (u *User) HasTOTP() bool {
	return len(u.TOTPSecret) > 0
}
