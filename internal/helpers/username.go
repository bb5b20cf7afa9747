package helpers

import (
	"fmt"
	"strings"
)

// AccountLabel derives the panel account label for a Telegram user.
// Labels are always lowercase so the panel's case-insensitive matching
// stays unambiguous.
func AccountLabel(telegramID int64) string {
	return fmt.Sprintf("user_%d", telegramID)
}

// NormalizeLabel lowercases and trims a panel account label
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
