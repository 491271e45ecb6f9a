package models

import "time"

// Registration is returned by RegisterPasskey. EnrollmentTicket authorizes
// a single TOTP setup for the new user.
type Registration struct {
	UserID           string
	Username         string
	EnrollmentTicket string
}

// TOTPSetup carries the one-time display of the TOTP seed.
type TOTPSetup struct {
	Secret    string
	URI       string
	QRCodePNG []byte
}

// Login is a freshly minted bearer session.
type Login struct {
	UserID    string
	Username  string
	Token     string
	ExpiresAt time.Time
}

// SessionInfo describes the identity behind a bearer token.
type SessionInfo struct {
	Valid           bool
	UserID          string
	Username        string
	SettingsVersion int64
}

// Analysis is the dark-pattern verdict for a piece of text.
type Analysis struct {
	Detected         bool
	PatternType      string
	ConfidenceScore  float64
	Description      string
	AffectedElements []string
}
