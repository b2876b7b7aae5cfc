package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation limits.
const (
	MinUsernameLength      = 3
	MaxUsernameLength      = 30
	MaxRejectionReason     = 500
	MaxNotesLength         = 1000
	MaxProofFilenameLength = 255
)

// ValidateLength checks a string's rune length against bounds.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters", fieldName, max)
	}
	return nil
}

// ValidateEmail performs a basic email format check.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("invalid email format")
	}
	if len(parts[0]) == 0 || len(parts[0]) > 64 {
		return fmt.Errorf("email local part must be 1 to 64 characters")
	}
	if len(parts[1]) == 0 || len(parts[1]) > 255 || !strings.Contains(parts[1], ".") {
		return fmt.Errorf("invalid email domain")
	}
	return nil
}

// ValidateUsername checks the username length and characters.
func ValidateUsername(username string) error {
	if err := ValidateLength("username", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}
	for _, r := range username {
		isValid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
		if !isValid {
			return fmt.Errorf("username may contain only letters, digits, '_', '-' and '.'")
		}
	}
	return nil
}
