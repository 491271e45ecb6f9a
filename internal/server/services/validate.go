package services

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/dmitrijs2005/shieldauth/internal/common"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 50
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateUsername enforces 3..50 characters of letters, digits, '_' and '-'.
func ValidateUsername(name string) error {
	n := utf8.RuneCountInString(name)
	if n < UsernameMinLen || n > UsernameMaxLen {
		return fmt.Errorf("%w: must be %d-%d characters", common.ErrInvalidUsername, UsernameMinLen, UsernameMaxLen)
	}
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("%w: only letters, digits, '_' and '-' are allowed", common.ErrInvalidUsername)
	}
	return nil
}

// isTOTPCode reports whether code is exactly TOTPDigits ASCII digits.
func isTOTPCode(code string) bool {
	if len(code) != TOTPDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
