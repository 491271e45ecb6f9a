// Package common defines shared constants and sentinel errors used across
// the client and server layers of shieldauth. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors.
	ErrInvalidUsername = errors.New("invalid username")
	ErrEmptyCredential = errors.New("passkey credential is required")

	// ErrAuthenticationFailed is the single category callers see when a login
	// step is rejected. The specific causes below wrap it.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNotAuthenticated is the single category callers see when a bearer
	// token does not resolve to an identity.
	ErrNotAuthenticated = errors.New("not authenticated")

	// Registration errors.
	ErrUsernameTaken = errors.New("username already exists")

	// Login causes. Distinct for logs, identical for callers.
	ErrUserNotFound      = fmt.Errorf("%w: user not found", ErrAuthenticationFailed)
	ErrInvalidCredential = fmt.Errorf("%w: invalid passkey", ErrAuthenticationFailed)
	ErrInvalidTOTP       = fmt.Errorf("%w: invalid totp code", ErrAuthenticationFailed)

	// ErrEnrollmentChanged rejects a login whose TOTP code was checked
	// against a seed that was replaced before the session was stored.
	ErrEnrollmentChanged = fmt.Errorf("%w: totp enrollment changed", ErrAuthenticationFailed)

	// Session causes.
	ErrInvalidSession = fmt.Errorf("%w: invalid session", ErrNotAuthenticated)
	ErrSessionExpired = fmt.Errorf("%w: session expired", ErrNotAuthenticated)

	// Enrollment ticket errors.
	ErrInvalidTicket = errors.New("invalid enrollment ticket")
	ErrTicketExpired = errors.New("enrollment ticket expired")

	// ErrTOTPAlreadyConfigured refuses first-time enrollment for a user who
	// already has a TOTP secret; re-enrollment needs a session.
	ErrTOTPAlreadyConfigured = errors.New("totp already configured")

	// Upstream call errors.
	ErrRetryExhausted   = errors.New("upstream unavailable after retries")
	ErrUpstreamRejected = errors.New("upstream rejected request")
)
