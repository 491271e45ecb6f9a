// Package auth holds the request-level authentication pieces of the API
// layer: the bearer-session guard and the short-lived TOTP enrollment ticket.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// EnrollmentPurpose marks tickets that may only be used for TOTP setup.
const EnrollmentPurpose = "totp-enrollment"

// Claims carries the standard claims plus the ticket purpose. The user ID
// travels in the subject.
type Claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// GenerateEnrollmentTicket signs an HS256 ticket allowing userID to set up
// TOTP until validity elapses.
func GenerateEnrollmentTicket(userID string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Purpose: EnrollmentPurpose,
	})

	return token.SignedString(secretKey)
}

// GetUserIDFromTicket verifies ticket and returns the user it was issued
// for. Expired tickets yield common.ErrTicketExpired; anything else that is
// wrong yields an error wrapping common.ErrInvalidTicket.
func GetUserIDFromTicket(ticket string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(ticket, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTicketExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidTicket, err)
	}

	if !token.Valid || claims.Purpose != EnrollmentPurpose || claims.Subject == "" {
		return "", common.ErrInvalidTicket
	}

	return claims.Subject, nil
}
