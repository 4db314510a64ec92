package errors

import (
	"strings"
	"unicode"
)

// ValidateNetName validates a net name received from a user or a request.
//
// The rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - Maximum length of 256 characters
//
// Whether the net exists is checked later against the board.
func ValidateNetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "net name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "net name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "net name contains invalid control characters")
		}
	}
	return nil
}

// ValidatePositive checks that a length in board units is strictly positive.
func ValidatePositive(code Code, what string, v int64) error {
	if v <= 0 {
		return New(code, "%s must be positive, got %d", what, v)
	}
	return nil
}

// ValidateNonNegative checks that a length in board units is zero or more.
func ValidateNonNegative(code Code, what string, v int64) error {
	if v < 0 {
		return New(code, "%s must not be negative, got %d", what, v)
	}
	return nil
}
