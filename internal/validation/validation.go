package validation

import (
	"fmt"
	"strconv"

	"xui-vpn-bot/internal/constants"
	apperrors "xui-vpn-bot/internal/errors"
)

// ValidateUsername validates a panel account label
func ValidateUsername(username string) error {
	if len(username) < constants.MinUsernameLength || len(username) > constants.MaxUsernameLength {
		return &apperrors.ValidationError{
			Field: "username",
			Message: fmt.Sprintf("must be between %d and %d characters",
				constants.MinUsernameLength, constants.MaxUsernameLength),
		}
	}

	for _, r := range username {
		if !isValidUsernameChar(r) {
			return &apperrors.ValidationError{
				Field:   "username",
				Message: "can only contain letters, numbers, and underscores",
			}
		}
	}

	return nil
}

// ValidateDuration validates and parses a day-count string
func ValidateDuration(durationStr string) (int, error) {
	days, err := strconv.Atoi(durationStr)
	if err != nil {
		return 0, &apperrors.ValidationError{Field: "duration", Message: "must be a number"}
	}

	if days < 1 {
		return 0, &apperrors.ValidationError{Field: "duration", Message: "must be at least 1 day"}
	}

	if days > 3650 { // 10 years max
		return 0, &apperrors.ValidationError{Field: "duration", Message: "cannot exceed 3650 days"}
	}

	return days, nil
}

// isValidUsernameChar checks if a character is valid for usernames
func isValidUsernameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_'
}
