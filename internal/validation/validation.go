// Package validation provides input validation and sanitization utilities.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrPasswordTooShort indicates password is less than minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrPasswordNoLetter indicates password has no letter.
	ErrPasswordNoLetter = errors.New("password must contain at least one letter")
	// ErrPasswordNoDigit indicates password has no digit.
	ErrPasswordNoDigit = errors.New("password must contain at least one digit")
	// ErrPasswordCommon indicates password is too common.
	ErrPasswordCommon = errors.New("password is too common, please choose a stronger password")
	// ErrInputTooLong indicates input exceeds maximum length.
	ErrInputTooLong = errors.New("input exceeds maximum length")
	// ErrInputInvalid indicates input contains invalid characters.
	ErrInputInvalid = errors.New("input contains invalid characters")
)

// illegalFilenameChars cannot appear in a Windows file name.
const illegalFilenameChars = `\/:*?"<>|`

var serviceIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

var commonPasswords = map[string]bool{
	"password":    true,
	"123456":      true,
	"12345678":    true,
	"qwerty":      true,
	"abc123":      true,
	"password1":   true,
	"password123": true,
	"admin":       true,
	"letmein":     true,
	"welcome":     true,
	"changeme":    true,
	"passw0rd":    true,
}

// SanitizeFilename replaces characters that are illegal in file names with
// underscores and trims surrounding whitespace.
func SanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalFilenameChars, r) {
			return '_'
		}
		return r
	}, name)
	return strings.TrimSpace(sanitized)
}

// ValidateServiceID validates a service identifier used in URL paths.
func ValidateServiceID(id string) error {
	if id == "" {
		return ErrInputInvalid
	}
	if len(id) > 64 {
		return ErrInputTooLong
	}
	if !serviceIDPattern.MatchString(id) {
		return ErrInputInvalid
	}
	return nil
}

// ValidateJobName validates a backup job name received from a request.
func ValidateJobName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInputInvalid
	}
	if len(name) > 256 {
		return ErrInputTooLong
	}
	if strings.ContainsAny(name, "\x00\n\r") {
		return ErrInputInvalid
	}
	return nil
}

// ValidatePassword checks a new remote-control password.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	var hasLetter, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if !hasLetter {
		return ErrPasswordNoLetter
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	if commonPasswords[strings.ToLower(password)] {
		return ErrPasswordCommon
	}

	return nil
}
